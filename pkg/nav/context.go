package nav

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// navCtx is the navigation-scoped router.ClientCtx implementation. Like
// the server's execution context it is confined to one navigation and
// needs no locking.
type navCtx struct {
	stdCtx context.Context
	path   string
	query  url.Values
	params *router.ParamBag
	values map[any]any
	logger *slog.Logger

	doc *server.Document
}

func newNavCtx(ctx context.Context, path, rawQuery string, params *router.ParamBag, logger *slog.Logger) *navCtx {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}
	if params == nil {
		params = router.EmptyParams()
	}
	return &navCtx{
		stdCtx: ctx,
		path:   path,
		query:  query,
		params: params,
		values: make(map[any]any),
		logger: logger.With(slog.String("path", path)),
	}
}

func (c *navCtx) StdContext() context.Context { return c.stdCtx }

func (c *navCtx) Path() string { return c.path }

func (c *navCtx) Param(name string) string { return c.params.Get(name) }

func (c *navCtx) Params() *router.ParamBag { return c.params }

func (c *navCtx) Query(name string) string { return c.query.Get(name) }

// ServerData returns the matched route's server document data. The
// navigator fetches the document once per navigation; every loader and
// component in the chain shares it.
func (c *navCtx) ServerData() (any, error) {
	if c.doc == nil {
		return nil, server.ErrNotFound
	}
	return c.doc.Data, nil
}

func (c *navCtx) SetValue(key, value any) { c.values[key] = value }

func (c *navCtx) Value(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *navCtx) Logger() *slog.Logger { return c.logger }
