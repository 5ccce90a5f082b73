package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"runtime"
	"sync"
)

// State is the position of a Form in its lifecycle.
type State int

const (
	// StateIdle means no file has been chosen.
	StateIdle State = iota
	// StateReady means a file is chosen and not yet uploaded.
	StateReady
	// StateUploaded means the last upload succeeded and a URL is available.
	StateUploaded
	// StateFailed means the last upload failed; the error is kept for display.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateUploaded:
		return "uploaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("client: invalid state transition")
	// ErrUploadInProgress is returned when an upload is started while another runs.
	ErrUploadInProgress = errors.New("client: upload already in progress")
)

// Uploader sends a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// Opener opens a URL in a new browsing context.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// Form holds the state of a single-file upload form.
type Form struct {
	uploader Uploader
	opener   Opener

	mu       sync.Mutex
	state    State
	name     string
	content  []byte
	url      string
	err      error
	inFlight bool
	// gen changes on every Select so a late upload result can be discarded.
	gen uint64
}

// NewForm returns an Idle form. A nil opener uses the system browser.
func NewForm(uploader Uploader, opener Opener) *Form {
	if opener == nil {
		opener = BrowserOpener()
	}
	return &Form{uploader: uploader, opener: opener}
}

// Select chooses a file. It is allowed in every state and always lands in
// Ready, clearing any previous URL or error.
func (f *Form) Select(name string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.state = StateReady
	f.name = name
	f.content = bytes.Clone(content)
	f.url = ""
	f.err = nil
}

// Upload sends the selected file. Allowed only from Ready.
func (f *Form) Upload(ctx context.Context) error {
	return f.send(ctx, StateReady)
}

// Retry re-sends the selected file. Allowed only from Failed.
func (f *Form) Retry(ctx context.Context) error {
	return f.send(ctx, StateFailed)
}

func (f *Form) send(ctx context.Context, from State) error {
	f.mu.Lock()
	if f.state != from {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrUploadInProgress
	}
	f.inFlight = true
	name, content, gen := f.name, f.content, f.gen
	f.mu.Unlock()

	url, err := f.uploader.Upload(ctx, name, bytes.NewReader(content))

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if f.gen != gen {
		// A different file was selected while this upload ran.
		return err
	}
	if err != nil {
		f.state = StateFailed
		f.url = ""
		f.err = err
		return err
	}
	f.state = StateUploaded
	f.url = url
	f.err = nil
	return nil
}

// Download opens the uploaded URL. Allowed only from Uploaded.
func (f *Form) Download() error {
	f.mu.Lock()
	if f.state != StateUploaded {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	url := f.url
	f.mu.Unlock()

	return f.opener.Open(url)
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// URL returns the uploaded file URL, or "" outside Uploaded.
func (f *Form) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Err returns the last upload error, or nil outside Failed.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// FileName returns the selected file name.
func (f *Form) FileName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// BrowserOpener opens URLs with the platform's default handler.
func BrowserOpener() Opener {
	return OpenerFunc(func(url string) error {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		return cmd.Start()
	})
}
