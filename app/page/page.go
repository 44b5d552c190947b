// Package page renders the HTML pages. Protected pages sit behind the auth
// gate, the sign in and sign up pages are for guests only.
package page

import (
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/internal/model"
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/pkg/forms"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses every page template
func Templates() *template.Template {
	funcs := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
		"dec": func(i int) int { return i - 1 },
	}

	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

type data struct {
	Title  string
	User   *model.User
	Error  string
	Notice string

	// Form state
	Fields      forms.Errors
	Values      map[string]string
	CallbackURL string
	Providers   []auth.Provider

	// Listing state
	Search string
	Page   int
	Pages  int

	Agents   *store.Page[store.AgentWithCount]
	Agent    *store.AgentWithCount
	Meetings *store.Page[model.Meeting]
	Meeting  *model.Meeting
}

func currentUser(c *gin.Context) *model.User {
	if id, ok := auth.FromContext(c.Request.Context()); ok {
		return &id.User
	}

	return nil
}

func notFound(c *gin.Context, msg string) {
	c.HTML(http.StatusNotFound, "not_found.html", data{
		Title: "Not found",
		User:  currentUser(c),
		Error: msg,
	})
}

func internalError(c *gin.Context, msg string, err error) {
	zap.L().Error(msg, zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	c.AbortWithStatus(http.StatusInternalServerError)
}

// bind fills v from the form or query. A bad field leaves it zero and the
// form validation reports it.
func bind(c *gin.Context, v any, fn func(any) error) {
	if err := fn(v); err != nil {
		zap.L().Debug("Can't bind request", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
	}
}

func pageOf(requested int) int {
	if requested < 1 {
		return 1
	}

	return requested
}

func Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", data{
		Title: "Home",
		User:  currentUser(c),
	})
}

func Agents(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	var filter store.AgentFilter
	bind(c, &filter, c.ShouldBindQuery)

	list, err := d.Agents.List(c.Request.Context(), userID, filter)
	if err != nil {
		internalError(c, "Failed to list agents", err)
		return
	}

	c.HTML(http.StatusOK, "agents.html", data{
		Title:  "Agents",
		User:   currentUser(c),
		Search: filter.Search,
		Page:   pageOf(filter.Page),
		Pages:  list.TotalPages,
		Agents: list,
	})
}

func Agent(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	agent, err := d.Agents.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(c, "Agent not found. It either doesn't exist or you don't own it")
			return
		}

		internalError(c, "Failed to fetch agent", err)
		return
	}

	c.HTML(http.StatusOK, "agent.html", data{
		Title: agent.Name,
		User:  currentUser(c),
		Agent: agent,
	})
}
