package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the set of HTTP operations of the API.
type ServerInterface interface {
	// POST /api/chat
	Chat(w http.ResponseWriter, r *http.Request)
	// POST /api/query
	Query(w http.ResponseWriter, r *http.Request)
	// GET /api/documents
	ListDocuments(w http.ResponseWriter, r *http.Request, params ListDocumentsParams)
	// POST /api/documents
	UploadDocuments(w http.ResponseWriter, r *http.Request, params UploadDocumentsParams)
	// DELETE /api/documents
	DeleteAllDocuments(w http.ResponseWriter, r *http.Request)
	// DELETE /api/documents/{name}
	DeleteDocument(w http.ResponseWriter, r *http.Request, name string)
	// POST /api/synchronize
	Synchronize(w http.ResponseWriter, r *http.Request)
	// DELETE /api/synchronize
	CancelSynchronize(w http.ResponseWriter, r *http.Request)
	// GET /api/index-status
	GetIndexStatus(w http.ResponseWriter, r *http.Request)
	// GET /api/prompts
	GetPrompts(w http.ResponseWriter, r *http.Request)
	// GET /api/usage
	GetUsage(w http.ResponseWriter, r *http.Request)
	// GET /health
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures route registration.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// serverInterfaceWrapper binds parameters before delegating to the handler.
type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) listDocuments(w http.ResponseWriter, r *http.Request) {
	var params ListDocumentsParams

	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "cursor", r.URL.Query(), &params.Cursor); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "cursor", Err: err})
		return
	}

	siw.handler.ListDocuments(w, r, params)
}

func (siw *serverInterfaceWrapper) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	var params UploadDocumentsParams

	if err := runtime.BindQueryParameter("form", true, false, "overwrite", r.URL.Query(), &params.Overwrite); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "overwrite", Err: err})
		return
	}

	siw.handler.UploadDocuments(w, r, params)
}

func (siw *serverInterfaceWrapper) deleteDocument(w http.ResponseWriter, r *http.Request) {
	var name string

	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "name", Err: err})
		return
	}

	siw.handler.DeleteDocument(w, r, name)
}

// HandlerWithOptions registers every operation on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandlerFunc: options.ErrorHandlerFunc}

	r.Group(func(r chi.Router) {
		r.Post("/api/chat", si.Chat)
		r.Post("/api/query", si.Query)
		r.Get("/api/documents", wrapper.listDocuments)
		r.Post("/api/documents", wrapper.uploadDocuments)
		r.Delete("/api/documents", si.DeleteAllDocuments)
		r.Delete("/api/documents/{name}", wrapper.deleteDocument)
		r.Post("/api/synchronize", si.Synchronize)
		r.Delete("/api/synchronize", si.CancelSynchronize)
		r.Get("/api/index-status", si.GetIndexStatus)
		r.Get("/api/prompts", si.GetPrompts)
		r.Get("/api/usage", si.GetUsage)
		r.Get("/health", si.HealthCheck)
		r.Get("/metrics", si.Metrics)
	})
	return r
}
