package souvenir

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sanskritiar/heritage/internal/domain"
	"github.com/sanskritiar/heritage/internal/errors"
	"github.com/sanskritiar/heritage/internal/event"
)

const (
	maxPhotoBytes    = 5 << 20
	downloadSuffix   = "_Heritage_Souvenir.png"
	fallbackFilename = "Heritage_Souvenir.png"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Shape declares which optional request fields the calling surface supports.
// The historical souvenir flows diverged on exactly these fields; one pipeline
// parameterized by Shape replaces them all.
type Shape struct {
	Style       bool
	Monument    bool
	IncludeLogo bool
}

// Details are the visitor-supplied profile fields. Name and Age are required
// at submit time; everything else is optional.
type Details struct {
	Name        string
	Age         string
	Email       string
	Phone       string
	Style       string
	Monument    string
	IncludeLogo *bool
}

// Payload is the outbound request handed to the transport. The photo, when
// present, has already been encoded as a data URI.
type Payload struct {
	Name         string
	Age          string
	Email        string
	Phone        string
	PhotoDataURI string
	Style        string
	Monument     string
	IncludeLogo  *bool
}

// Outcome is the transport's interpretation of the generation-service
// response: either a direct result reference, or a bare acceptance of an
// asynchronous job.
type Outcome struct {
	ImageURL string
	Accepted bool
}

// Transport performs the single request/response exchange with the
// generation service. Implementations must not retry.
type Transport interface {
	Submit(ctx context.Context, p Payload) (*Outcome, error)
}

type Config struct {
	SessionID      string
	EventBus       *event.Bus
	Transport      Transport
	Shape          Shape
	PlaceholderURL string
}

// Pipeline drives one visitor's souvenir request through
// Idle -> Submitting -> Succeeded/Failed, with Reset back to Idle. At most
// one exchange is in flight at a time; Submit is rejected while Submitting.
type Pipeline struct {
	session     string
	eb          *event.Bus
	transport   Transport
	shape       Shape
	placeholder string

	mu         sync.Mutex
	details    Details
	photo      []byte
	photoMIME  string
	status     Status
	resultURL  string
	failReason string
}

func NewPipeline(c Config) *Pipeline {
	return &Pipeline{
		session:     c.SessionID,
		eb:          c.EventBus,
		transport:   c.Transport,
		shape:       c.Shape,
		placeholder: c.PlaceholderURL,
	}
}

// Snapshot is a point-in-time view of the pipeline.
type Snapshot struct {
	Status     Status
	Details    Details
	HasPhoto   bool
	ResultURL  string
	FailReason string
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshotLocked()
}

func (p *Pipeline) snapshotLocked() Snapshot {
	return Snapshot{
		Status:     p.status,
		Details:    p.details,
		HasPhoto:   len(p.photo) > 0,
		ResultURL:  p.resultURL,
		FailReason: p.failReason,
	}
}

// SetDetails replaces the profile fields. Optional fields the shape does not
// support are dropped. Edits are rejected while a submission is in flight.
func (p *Pipeline) SetDetails(d Details) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusSubmitting {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("souvenir generation in flight"))
	}

	if !p.shape.Style {
		d.Style = ""
	}
	if !p.shape.Monument {
		d.Monument = ""
	}
	if !p.shape.IncludeLogo {
		d.IncludeLogo = nil
	}

	p.details = d
	return nil
}

// SetPhoto validates and stores the visitor's photo. Oversized or non-image
// payloads are rejected without mutating state. An empty declaredType falls
// back to content sniffing.
func (p *Pipeline) SetPhoto(data []byte, declaredType string) error {
	if len(data) > maxPhotoBytes {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("photo must be smaller than 5MB"))
	}

	mime := strings.TrimSpace(declaredType)
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("photo must be an image file, got %s", mime))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusSubmitting {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("souvenir generation in flight"))
	}

	p.photo = data
	p.photoMIME = mime
	return nil
}

// Submit runs the full request cycle: validate, encode the photo, exchange
// with the generation service, settle. It is legal only from Idle or Failed.
// Transport failures settle the pipeline as Failed and are reported in the
// returned snapshot, not as an error.
func (p *Pipeline) Submit(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()

	switch p.status {
	case StatusSubmitting:
		p.mu.Unlock()
		return Snapshot{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("souvenir generation already in flight"))
	case StatusSucceeded:
		p.mu.Unlock()
		return Snapshot{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("souvenir already generated; reset to create another"))
	}

	if err := validateDetails(p.details); err != nil {
		p.mu.Unlock()
		return Snapshot{}, err
	}

	p.status = StatusSubmitting
	p.failReason = ""

	payload := Payload{
		Name:        p.details.Name,
		Age:         p.details.Age,
		Email:       p.details.Email,
		Phone:       p.details.Phone,
		Style:       p.details.Style,
		Monument:    p.details.Monument,
		IncludeLogo: p.details.IncludeLogo,
	}
	if len(p.photo) > 0 {
		payload.PhotoDataURI = encodeDataURI(p.photo, p.photoMIME)
	}

	p.mu.Unlock()

	outcome, err := p.transport.Submit(ctx, payload)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case err != nil:
		p.status = StatusFailed
		p.failReason = err.Error()
	case outcome.ImageURL != "":
		p.status = StatusSucceeded
		p.resultURL = outcome.ImageURL
	case outcome.Accepted:
		// The real asset is produced out of band; stand in with the
		// configured placeholder reference.
		p.status = StatusSucceeded
		p.resultURL = p.placeholder
	default:
		p.status = StatusFailed
		p.failReason = "unexpected response from generation service"
	}

	if p.status == StatusSucceeded {
		p.eb.Publish(ctx, domain.EventSouvenirGenerated{
			SessionID: p.session,
			ImageURL:  p.resultURL,
		})
	}

	return p.snapshotLocked(), nil
}

// Download exposes the settled result for a client-local save. The filename
// derives from the submitter's name with whitespace collapsed to underscores.
func (p *Pipeline) Download() (url, filename string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusSucceeded {
		return "", "", errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("no generated souvenir to download"))
	}

	return p.resultURL, DownloadFilename(p.details.Name), nil
}

// Reset clears all fields and returns to Idle. It is the only path from
// Succeeded to a new submission. Rejected while an exchange is in flight.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusSubmitting {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("souvenir generation in flight"))
	}

	p.details = Details{}
	p.photo = nil
	p.photoMIME = ""
	p.status = StatusIdle
	p.resultURL = ""
	p.failReason = ""
	return nil
}

// DownloadFilename derives the save-as name from the submitter's name, e.g.
// "Asha" -> "Asha_Heritage_Souvenir.png".
func DownloadFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return fallbackFilename
	}
	return whitespaceRE.ReplaceAllString(name, "_") + downloadSuffix
}

func validateDetails(d Details) error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("name is required"))
	}
	age := strings.TrimSpace(d.Age)
	if age == "" {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("age is required"))
	}
	if _, err := strconv.Atoi(age); err != nil {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("age must be numeric"))
	}
	return nil
}

func encodeDataURI(data []byte, mime string) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))
}
