// Package shred is an HTTP client built around one exchange at a time. A
// [Request] follows redirects on itself, buffers and decodes the reply and
// ends in exactly one terminal event its listeners can observe.
package shred

import (
	"github.com/frankli0324/go-shred/internal"
	"github.com/frankli0324/go-shred/internal/config"
	"github.com/frankli0324/go-shred/internal/content"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/internal/http"
)

type Client = internal.Client
type Config = internal.Config
type Options = internal.Options
type Request = internal.Request
type Response = internal.Response
type Result = internal.Result
type RequestError = internal.RequestError

// Middleware wraps every hop a [Client] issues, redirects included.
type Middleware = internal.Middleware
type Handler = internal.Handler

type Event = internal.Event
type Handlers = internal.Handlers
type Emitter = internal.Emitter

const (
	EventRedirect     = internal.EventRedirect
	EventSuccess      = internal.EventSuccess
	EventError        = internal.EventError
	EventResponse     = internal.EventResponse
	EventTimeout      = internal.EventTimeout
	EventRequestError = internal.EventRequestError
	EventSocket       = internal.EventSocket
	EventCleanup      = internal.EventCleanup
)

var (
	ErrNoURL            = internal.ErrNoURL
	ErrTooManyRedirects = internal.ErrTooManyRedirects
	ErrTimeout          = internal.ErrTimeout
	ErrScheme           = internal.ErrScheme
)

// Header is case-insensitive, it remembers the casing of the last write.
type Header = http.Header
type Params = http.Params
type Reply = http.Reply
type Trace = http.Trace
type Transport = http.Transport
type TransportFunc = http.TransportFunc

type Content = content.Content
type Processor = content.Processor

type Jar = cookie.Jar
type Cookie = cookie.Cookie
type PersistentJar = cookie.PersistentJar

// Discard is a jar that keeps nothing, set it as [Options.CookieJar] to opt
// a request out of the client's jar.
var Discard = cookie.Discard

var (
	NewJar           = cookie.NewJar
	NewPersistentJar = cookie.NewPersistentJar
)

func New(cfg Config) *Client { return internal.New(cfg) }

// NewFromEnv builds a client from the SHRED_* environment variables.
func NewFromEnv() (*Client, *PersistentJar, error) { return internal.NewFromEnv() }

// EnvConfig is the environment driven configuration read by [NewFromEnv].
type EnvConfig = config.Config

func NewFromConfig(c EnvConfig) (*Client, *PersistentJar, error) { return internal.NewFromConfig(c) }

// RegisterProcessor binds p to media types on the default content registry.
func RegisterProcessor(p Processor, types ...string) { content.Register(p, types...) }
