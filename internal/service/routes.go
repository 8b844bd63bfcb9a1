package service

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Requirement is a parameter that must be present and non-empty.
type Requirement struct {
	Name    string
	Message string
}

// RouteSpec declares one proxied endpoint. Specs are built once and never
// modified while serving.
type RouteSpec struct {
	Name     string
	Method   string
	Path     string // inbound path relative to /api/lichess, echo syntax
	Upstream string // upstream path with {param} placeholders

	Required []Requirement
	Defaults url.Values          // applied per key when the caller did not send the key
	Fallback []string            // default keys that also replace an empty caller value
	Multi    []string            // keys forwarded once per occurrence
	Allowed  map[string][]string // values outside the list are dropped
	TrueOnly []string            // flags forwarded only when the caller sent "true"

	Auth    bool // attach the bearer token
	Account bool // send the configured account id as ids
	NDJSON  bool // upstream streams newline-delimited JSON

	Resource string // used in "Failed to fetch <Resource>"
	Failure  string // overrides the generic failure message
	NotFound string
}

// FailureMessage is the generic error shown when the upstream call fails.
func (r *RouteSpec) FailureMessage() string {
	if r.Failure != "" {
		return r.Failure
	}
	return "Failed to fetch " + r.Resource
}

// NotFoundMessage is shown when the upstream answers 404.
func (r *RouteSpec) NotFoundMessage() string {
	if r.NotFound != "" {
		return r.NotFound
	}
	return "Resource not found"
}

// BuildQuery derives the upstream query from the caller's query values.
func (r *RouteSpec) BuildQuery(in url.Values) url.Values {
	out := make(url.Values)

	for key, vals := range in {
		if r.unset(key, vals) {
			continue
		}
		if slices.Contains(r.TrueOnly, key) {
			if vals[0] == "true" {
				out.Set(key, "true")
			}
			continue
		}
		if !slices.Contains(r.Multi, key) {
			vals = vals[:1]
		}
		allowed, restricted := r.Allowed[key]
		trim := r.requires(key)
		for _, v := range vals {
			if trim {
				v = strings.TrimSpace(v)
			}
			if restricted && !slices.Contains(allowed, v) {
				continue
			}
			out.Add(key, v)
		}
	}

	for key, defaults := range r.Defaults {
		if vals, ok := in[key]; !ok || r.unset(key, vals) {
			out[key] = slices.Clone(defaults)
		}
	}

	return out
}

// ExpandPath substitutes {param} placeholders with escaped path values.
func (r *RouteSpec) ExpandPath(params map[string]string) string {
	path := r.Upstream
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// unset reports whether the caller's values for key count as not sent.
func (r *RouteSpec) unset(key string, vals []string) bool {
	if len(vals) == 0 {
		return true
	}
	return vals[0] == "" && slices.Contains(r.Fallback, key)
}

func (r *RouteSpec) requires(name string) bool {
	for _, req := range r.Required {
		if req.Name == name {
			return true
		}
	}
	return false
}

var gameExportFlags = []string{"moves", "pgnInJson", "tags", "clocks", "evals", "accuracy", "opening", "division"}

func flagDefaults(names ...string) url.Values {
	v := make(url.Values, len(names))
	for _, n := range names {
		v.Set(n, "true")
	}
	return v
}

func withDefaults(base url.Values, kv ...string) url.Values {
	for i := 0; i+1 < len(kv); i += 2 {
		base.Set(kv[i], kv[i+1])
	}
	return base
}

var (
	requireUsername    = Requirement{Name: "username", Message: "Username is required"}
	requireTeamID      = Requirement{Name: "id", Message: "Team ID is required"}
	requireTourID      = Requirement{Name: "id", Message: "Tournament ID is required"}
	requireSwissID     = Requirement{Name: "id", Message: "Swiss tournament ID is required"}
	tournamentStatuses = []string{"10", "20", "30"}
)

// routes is the complete table of simple proxied endpoints. Challenge creation
// is handled separately by CreateChallenge.
var routes = []RouteSpec{
	{
		Name: "account", Method: http.MethodGet, Path: "/account", Upstream: "/api/account",
		Auth: true, Resource: "account",
	},
	{
		Name: "account_status", Method: http.MethodGet, Path: "/account/status", Upstream: "/api/users/status",
		Account: true, Resource: "account status",
	},
	{
		Name: "broadcasts", Method: http.MethodGet, Path: "/broadcast", Upstream: "/api/broadcast",
		Defaults: url.Values{"nb": {"20"}, "html": {"false"}},
		Fallback: []string{"nb", "html"},
		Resource: "broadcasts",
	},
	{
		Name: "external_engines", Method: http.MethodGet, Path: "/external-engine", Upstream: "/api/external-engine",
		Auth: true, Resource: "external engines",
	},
	{
		Name: "fide_player_search", Method: http.MethodGet, Path: "/fide/player", Upstream: "/api/fide/player",
		Required: []Requirement{{Name: "q", Message: "Search query (q) is required"}},
		Resource: "FIDE players",
	},
	{
		Name: "user_games", Method: http.MethodGet, Path: "/games/user/:username", Upstream: "/api/games/user/{username}",
		Required: []Requirement{requireUsername},
		Defaults: withDefaults(
			flagDefaults("moves", "tags", "clocks", "evals", "accuracy", "opening", "division",
				"finished", "literate", "lastFen", "withBookmarked"),
			"sort", "dateDesc",
		),
		NDJSON:   true,
		Resource: "user games", NotFound: "User not found",
	},
	{
		Name: "player_leaderboards", Method: http.MethodGet, Path: "/player", Upstream: "/api/player",
		Resource: "player leaderboards",
	},
	{
		Name: "daily_puzzle", Method: http.MethodGet, Path: "/puzzle/daily", Upstream: "/api/puzzle/daily",
		Resource: "daily puzzle",
	},
	{
		Name: "live_streamers", Method: http.MethodGet, Path: "/streamer/live", Upstream: "/api/streamer/live",
		Resource: "live streamers",
	},
	{
		Name: "swiss", Method: http.MethodGet, Path: "/swiss/:id", Upstream: "/api/swiss/{id}",
		Required: []Requirement{requireSwissID},
		Resource: "Swiss tournament", NotFound: "Swiss tournament not found",
	},
	{
		Name: "swiss_games", Method: http.MethodGet, Path: "/swiss/:id/games", Upstream: "/api/swiss/{id}/games",
		Required: []Requirement{requireSwissID},
		Defaults: flagDefaults(gameExportFlags...),
		Fallback: gameExportFlags,
		NDJSON:   true,
		Resource: "Swiss tournament games", NotFound: "Swiss tournament not found",
	},
	{
		Name: "swiss_results", Method: http.MethodGet, Path: "/swiss/:id/results", Upstream: "/api/swiss/{id}/results",
		Required: []Requirement{requireSwissID},
		Defaults: url.Values{"nb": {"100"}},
		Fallback: []string{"nb"},
		NDJSON:   true,
		Resource: "Swiss tournament results", NotFound: "Swiss tournament not found",
	},
	{
		Name: "teams", Method: http.MethodGet, Path: "/team", Upstream: "/api/team/all",
		Defaults: url.Values{"page": {"1"}},
		Resource: "all teams",
	},
	{
		Name: "team_search", Method: http.MethodGet, Path: "/team/search", Upstream: "/api/team/search",
		Required: []Requirement{{Name: "text", Message: "Search text is required"}},
		Defaults: url.Values{"page": {"1"}},
		Resource: "team search results", Failure: "Failed to search teams",
	},
	{
		Name: "user_teams", Method: http.MethodGet, Path: "/team/of/:username", Upstream: "/api/team/of/{username}",
		Required: []Requirement{requireUsername},
		Resource: "user teams", NotFound: "User not found",
	},
	{
		Name: "team", Method: http.MethodGet, Path: "/team/:id", Upstream: "/api/team/{id}",
		Required: []Requirement{requireTeamID},
		Resource: "team", NotFound: "Team not found",
	},
	{
		Name: "team_arena", Method: http.MethodGet, Path: "/team/:id/arena", Upstream: "/api/team/{id}/arena",
		Required: []Requirement{requireTeamID},
		Defaults: url.Values{"max": {"100"}},
		NDJSON:   true,
		Resource: "team arena tournaments", NotFound: "Team not found",
	},
	{
		Name: "tournaments", Method: http.MethodGet, Path: "/tournament", Upstream: "/api/tournament",
		Resource: "arena tournaments",
	},
	{
		Name: "tournament", Method: http.MethodGet, Path: "/tournament/:id", Upstream: "/api/tournament/{id}",
		Required: []Requirement{requireTourID},
		Resource: "arena tournament", NotFound: "Tournament not found",
	},
	{
		Name: "tournament_games", Method: http.MethodGet, Path: "/tournament/:id/games", Upstream: "/api/tournament/{id}/games",
		Required: []Requirement{requireTourID},
		Defaults: flagDefaults(gameExportFlags...),
		NDJSON:   true,
		Resource: "arena tournament games", NotFound: "Tournament not found",
	},
	{
		Name: "tournament_results", Method: http.MethodGet, Path: "/tournament/:id/results", Upstream: "/api/tournament/{id}/results",
		Required: []Requirement{requireTourID},
		NDJSON:   true,
		Resource: "arena tournament results", NotFound: "Tournament not found",
	},
	{
		Name: "tournament_teams", Method: http.MethodGet, Path: "/tournament/:id/teams", Upstream: "/api/tournament/{id}/teams",
		Required: []Requirement{requireTourID},
		Resource: "tournament team standings", NotFound: "Tournament not found",
	},
	{
		Name: "tv_channels", Method: http.MethodGet, Path: "/tv/channels", Upstream: "/api/tv/channels",
		Resource: "TV channels",
	},
	{
		Name: "user", Method: http.MethodGet, Path: "/user/:username", Upstream: "/api/user/{username}",
		Required: []Requirement{requireUsername},
		Auth:     true,
		Resource: "user profile", NotFound: "User not found",
	},
	{
		Name: "user_note", Method: http.MethodGet, Path: "/user/:username/note", Upstream: "/api/user/{username}/note",
		Required: []Requirement{requireUsername},
		Auth:     true,
		Resource: "user notes", NotFound: "User not found",
	},
	{
		Name: "user_perf", Method: http.MethodGet, Path: "/user/:username/perf/:perf", Upstream: "/api/user/{username}/perf/{perf}",
		Required: []Requirement{requireUsername, {Name: "perf", Message: "Performance type is required"}},
		Resource: "user performance stats", NotFound: "User not found",
	},
	{
		Name: "user_rating_history", Method: http.MethodGet, Path: "/user/:username/rating-history", Upstream: "/api/user/{username}/rating-history",
		Required: []Requirement{requireUsername},
		Resource: "user rating history", NotFound: "User not found",
	},
	{
		Name: "user_tournaments_created", Method: http.MethodGet, Path: "/user/:username/tournament/created", Upstream: "/api/user/{username}/tournament/created",
		Required: []Requirement{requireUsername},
		Defaults: url.Values{"nb": {"50"}, "status": tournamentStatuses},
		Fallback: []string{"nb"},
		Multi:    []string{"status"},
		Allowed:  map[string][]string{"status": tournamentStatuses},
		NDJSON:   true,
		Resource: "user created tournaments", NotFound: "User not found",
	},
	{
		Name: "user_tournaments_played", Method: http.MethodGet, Path: "/user/:username/tournament/played", Upstream: "/api/user/{username}/tournament/played",
		Required: []Requirement{requireUsername},
		Defaults: url.Values{"nb": {"50"}, "performance": {"true"}},
		Fallback: []string{"nb", "performance"},
		NDJSON:   true,
		Resource: "user played tournaments", NotFound: "User not found",
	},
	{
		Name: "users_status", Method: http.MethodGet, Path: "/users/status", Upstream: "/api/users/status",
		Required: []Requirement{{Name: "ids", Message: "ids parameter is required"}},
		Multi:    []string{"ids"},
		TrueOnly: []string{"withSignal", "withGameIds", "withGameMetas"},
		Resource: "users status",
	},
}

// Routes returns the simple route table.
func Routes() []RouteSpec {
	return slices.Clone(routes)
}
