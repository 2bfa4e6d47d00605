// Package query answers chat queries. A query is matched against an
// ordered route table; the first route that handles it produces the
// response.
package query

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"airrag/internal/analysis"
	"airrag/internal/docstore"
	"airrag/internal/domain"
	"airrag/internal/intent"
	"airrag/internal/llm"
	"airrag/internal/metrics"
	"airrag/internal/projectstore"
	"airrag/internal/report"
)

// Reporter writes a report on a topic. A non-nil error means the backend
// failed.
type Reporter interface {
	Report(ctx context.Context, topic string) (string, error)
}

// Deps are the collaborators shared by every processor. Documents and
// Projects are required; the rest fall back to safe defaults.
type Deps struct {
	Keywords  *intent.Table
	Documents *docstore.Store
	Projects  *projectstore.Store
	Stations  domain.StationProvider
	Sensors   domain.SensorReadingSource
	Completer domain.Completer
	Reports   Reporter
	Rand      analysis.Rand
	Log       *zap.Logger
	Metrics   *metrics.Metrics
}

// request is one query as seen by the routes.
type request struct {
	raw     string
	q       string
	project *domain.ProjectData
}

type route struct {
	name   string
	match  func(in request) bool
	handle func(ctx context.Context, in request) (domain.SensorResponse, bool)
}

// Router is safe for concurrent use.
type Router struct {
	deps   Deps
	kw     *intent.Table
	routes []route
	rag    []ragBranch
}

func New(d Deps) *Router {
	if d.Keywords == nil {
		d.Keywords = intent.MustLoad(intent.DefaultLocale)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Completer == nil {
		d.Completer = llm.Unconfigured{Reason: "no completion backend"}
	}
	if d.Reports == nil {
		d.Reports = report.New(d.Documents, d.Projects, d.Completer, d.Log)
	}
	if d.Rand == nil {
		d.Rand = &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	r := &Router{deps: d, kw: d.Keywords}
	r.routes = r.buildRoutes()
	r.rag = r.buildRAG()
	return r
}

func (r *Router) buildRoutes() []route {
	kw := r.kw
	return []route{
		{
			name:   "station",
			match:  func(in request) bool { return kw.IsStationQuery(in.q) },
			handle: always(r.station),
		},
		{
			name: "project",
			match: func(in request) bool {
				return in.project != nil && (kw.ProjectAnalysis.Match(in.q) || kw.SensorReading.Match(in.q))
			},
			handle: always(r.ragQuery),
		},
		{
			name:   "map",
			match:  func(in request) bool { return kw.MapData.Match(in.q) || kw.StationList.Match(in.q) },
			handle: always(r.mapData),
		},
		{
			name:   "sensor",
			match:  func(in request) bool { return kw.SensorQuery.Match(in.q) },
			handle: always(r.sensorData),
		},
		{
			name:  "local",
			match: func(in request) bool { return kw.LocalData.Match(in.q) && kw.LocalDataSubject.Match(in.q) },
			handle: func(ctx context.Context, in request) (domain.SensorResponse, bool) {
				resp := r.localData(ctx, in)
				return resp, resp.Text != MsgNotFound
			},
		},
		{
			name:   "analysis",
			match:  func(in request) bool { return kw.Advanced.Match(in.q) },
			handle: always(r.ragQuery),
		},
		{
			name:   "rag",
			match:  func(request) bool { return true },
			handle: always(r.ragQuery),
		},
	}
}

func always(h func(context.Context, request) domain.SensorResponse) func(context.Context, request) (domain.SensorResponse, bool) {
	return func(ctx context.Context, in request) (domain.SensorResponse, bool) {
		return h(ctx, in), true
	}
}

// Process answers one query. It never fails: backend problems and panics
// inside a processor become chat messages.
func (r *Router) Process(ctx context.Context, input string) (resp domain.SensorResponse) {
	start := time.Now()
	in := request{raw: input, q: intent.Normalize(input), project: r.deps.Projects.Get()}
	name := "none"
	log := r.deps.Log.With(zap.String("query", input))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("processor panicked", zap.String("route", name), zap.Any("panic", rec), zap.Stack("stack"))
			resp = domain.SensorResponse{Text: MsgInternal}
		}
		r.deps.Metrics.Query(name, time.Since(start))
	}()

	for _, rt := range r.routes {
		if !rt.match(in) {
			continue
		}
		name = rt.name
		out, ok := rt.handle(ctx, in)
		if ok {
			log.Debug("query routed", zap.String("route", rt.name))
			return out
		}
	}
	return domain.SensorResponse{Text: MsgNotFound}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}
