package internal

import (
	"net"
	"strings"
	"sync"
)

// Event is a lifecycle event of a [Request].
type Event int

const (
	EventRedirect Event = iota
	EventSuccess
	EventError
	EventResponse // fallback for success and error without own listeners
	EventTimeout
	EventRequestError
	EventSocket
	EventCleanup
)

var eventNames = [...]string{"redirect", "success", "error", "response", "timeout", "request_error", "socket", "cleanup"}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

// Handlers registers listeners in bulk, see [Options.On].
type Handlers struct {
	Redirect func(*Response)
	Success  func(*Response)
	Error    func(*Response)
	Response func(*Response)
	// Status and Phrase listeners take precedence over all of the above.
	Status map[int]func(*Response)
	Phrase map[string]func(*Response)

	Timeout      func(*Request)
	RequestError func(*Request, error)
	Socket       func(net.Conn)
	Cleanup      func(*Request)
}

// Emitter routes lifecycle events of one request to its listeners.
type Emitter struct {
	mu           sync.Mutex
	response     map[Event][]func(*Response)
	status       map[int][]func(*Response)
	phrase       map[string][]func(*Response)
	timeout      []func(*Request)
	requestError []func(*Request, error)
	socket       []func(net.Conn)
	cleanup      []func(*Request)
}

// On listens for one of redirect, success, error and response. The other
// events carry no response and have their own registration methods.
func (e *Emitter) On(ev Event, fn func(*Response)) {
	switch ev {
	case EventRedirect, EventSuccess, EventError, EventResponse:
	default:
		panic("shred: On(" + ev.String() + ") does not carry a response")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.response == nil {
		e.response = map[Event][]func(*Response){}
	}
	e.response[ev] = append(e.response[ev], fn)
}

// OnStatus listens for a status code. While any status or phrase listener
// matches a response, only those listeners run.
func (e *Emitter) OnStatus(code int, fn func(*Response)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == nil {
		e.status = map[int][]func(*Response){}
	}
	e.status[code] = append(e.status[code], fn)
}

// OnPhrase listens for a reason phrase, compared in lower case.
func (e *Emitter) OnPhrase(phrase string, fn func(*Response)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phrase == nil {
		e.phrase = map[string][]func(*Response){}
	}
	p := strings.ToLower(phrase)
	e.phrase[p] = append(e.phrase[p], fn)
}

func (e *Emitter) OnTimeout(fn func(*Request)) {
	e.mu.Lock()
	e.timeout = append(e.timeout, fn)
	e.mu.Unlock()
}

func (e *Emitter) OnRequestError(fn func(*Request, error)) {
	e.mu.Lock()
	e.requestError = append(e.requestError, fn)
	e.mu.Unlock()
}

func (e *Emitter) OnSocket(fn func(net.Conn)) {
	e.mu.Lock()
	e.socket = append(e.socket, fn)
	e.mu.Unlock()
}

func (e *Emitter) OnCleanup(fn func(*Request)) {
	e.mu.Lock()
	e.cleanup = append(e.cleanup, fn)
	e.mu.Unlock()
}

func (e *Emitter) Register(h Handlers) {
	for ev, fn := range map[Event]func(*Response){
		EventRedirect: h.Redirect, EventSuccess: h.Success, EventError: h.Error, EventResponse: h.Response,
	} {
		if fn != nil {
			e.On(ev, fn)
		}
	}
	for code, fn := range h.Status {
		e.OnStatus(code, fn)
	}
	for phrase, fn := range h.Phrase {
		e.OnPhrase(phrase, fn)
	}
	if h.Timeout != nil {
		e.OnTimeout(h.Timeout)
	}
	if h.RequestError != nil {
		e.OnRequestError(h.RequestError)
	}
	if h.Socket != nil {
		e.OnSocket(h.Socket)
	}
	if h.Cleanup != nil {
		e.OnCleanup(h.Cleanup)
	}
}

// route picks the listeners for a classified response: status and phrase
// channels first, then the event's own listeners, then the generic
// response channel unless the response is a redirect.
func (e *Emitter) route(ev Event, resp *Response) []func(*Response) {
	e.mu.Lock()
	defer e.mu.Unlock()
	phrase := strings.ToLower(resp.StatusText)
	byStatus, byPhrase := e.status[resp.Status], e.phrase[phrase]
	if len(byStatus) > 0 || (phrase != "" && len(byPhrase) > 0) {
		return append(append([]func(*Response){}, byStatus...), byPhrase...)
	}
	if fns := e.response[ev]; len(fns) > 0 {
		return append([]func(*Response){}, fns...)
	}
	if ev != EventRedirect {
		return append([]func(*Response){}, e.response[EventResponse]...)
	}
	return nil
}

func (e *Emitter) emit(ev Event, resp *Response) {
	for _, fn := range e.route(ev, resp) {
		fn(resp)
	}
}

func (e *Emitter) emitTimeout(r *Request) {
	e.mu.Lock()
	fns := append([]func(*Request){}, e.timeout...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

func (e *Emitter) emitRequestError(r *Request, err error) {
	e.mu.Lock()
	fns := append([]func(*Request, error){}, e.requestError...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn(r, err)
	}
}

func (e *Emitter) emitSocket(c net.Conn) {
	e.mu.Lock()
	fns := append([]func(net.Conn){}, e.socket...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (e *Emitter) emitCleanup(r *Request) {
	e.mu.Lock()
	fns := append([]func(*Request){}, e.cleanup...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}
