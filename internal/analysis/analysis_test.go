package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/effectflow/internal/config"
	"github.com/phobologic/effectflow/internal/errs"
	"github.com/phobologic/effectflow/internal/logging"
	"github.com/phobologic/effectflow/internal/model"
)

func names(ms []model.EffectMapping) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func byName(t *testing.T, ms []model.EffectMapping, name string) model.EffectMapping {
	t.Helper()
	for _, m := range ms {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("mapping %s not found in %v", name, names(ms))
	return model.EffectMapping{}
}

func TestRunEventsDemo(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), config.Default(), []string{filepath.Join("testdata", "events")})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"eventModification$", "fetchEvents$", "fetchEvent$", "fetchEvent2$", "try$", "test$"},
		names(res.Mappings))

	mod := byName(t, res.Mappings, "eventModification$")
	assert.Equal(t, model.Lits("CREATE_EVENT", "EDIT_EVENT"), mod.InputTypes)
	assert.Equal(t, []model.Token{model.Void}, mod.ReturnTypes)

	assert.Equal(t, model.Lits("FETCH_EVENT"), byName(t, res.Mappings, "fetchEvents$").ReturnTypes)
	assert.Equal(t, model.Lits("CreateEvent"), byName(t, res.Mappings, "fetchEvent$").ReturnTypes)
	assert.Equal(t, model.Lits("TEST"), byName(t, res.Mappings, "try$").ReturnTypes)
	// Constructor-supplied type resolved by argument position.
	assert.Equal(t, model.Lits("LOL"), byName(t, res.Mappings, "test$").ReturnTypes)

	loc := byName(t, res.Mappings, "fetchEvents$").Location
	assert.Equal(t, filepath.Join("testdata", "events", "events.effects.ts"), loc.Path)
	assert.Equal(t, 33, loc.Line)
	assert.Equal(t, 3, loc.Column)

	roots := make([]string, len(res.Forest))
	for i, r := range res.Forest {
		roots[i] = r.TriggeringType
	}
	assert.Equal(t, []string{"CREATE_EVENT", "EDIT_EVENT", "FETCH_EVENTS", "FETCH_EVENT", "AA", "TEST"}, roots)

	// FETCH_EVENTS > fetchEvents$ > FETCH_EVENT > [fetchEvent$ > CreateEvent, fetchEvent2$ > EditEvent]
	fetch := res.Forest[2].Children
	require.Len(t, fetch, 1)
	require.Len(t, fetch[0].Children, 2)
	assert.Equal(t, "fetchEvent$", fetch[0].Children[0].OriginName)
	assert.Equal(t, "fetchEvent2$", fetch[0].Children[1].OriginName)
	leaf := fetch[0].Children[0].Children[0]
	assert.Equal(t, model.NodeUnhandled, leaf.Kind)
	assert.Equal(t, "CreateEvent", leaf.TriggeringType)

	assert.Equal(t, model.Summary{Files: 1, Effects: 6, Roots: 6, Suppressed: 1}, res.Summary)
}

func TestRunAuthBarrel(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), config.Default(), []string{filepath.Join("testdata", "auth")})
	require.NoError(t, err)
	require.Len(t, res.Files, 3)

	assert.Equal(t,
		[]string{"login$", "loginSuccess$", "loginFailure$", "loginRedirect$", "refresh$", "logoutNotice$"},
		names(res.Mappings))

	login := byName(t, res.Mappings, "login$")
	assert.Equal(t, model.Lits("[Auth] Login"), login.InputTypes)
	// Primary branch first, error recovery second.
	assert.Equal(t, model.Lits("[Auth] Login Success", "[Auth] Login Failure"), login.ReturnTypes)

	assert.Equal(t, []model.Token{model.Void}, byName(t, res.Mappings, "loginSuccess$").ReturnTypes)

	redirect := byName(t, res.Mappings, "loginRedirect$")
	// SIGN_OUT travels through the barrel's renamed re-export.
	assert.Equal(t, model.Lits("[Auth] Login Redirect", "[Auth] Logout"), redirect.InputTypes)
	assert.Equal(t, model.Lits("[Auth] Login"), redirect.ReturnTypes)

	assert.Equal(t, []model.Token{model.Unknown}, byName(t, res.Mappings, "refresh$").ReturnTypes)

	notice := byName(t, res.Mappings, "logoutNotice$")
	assert.Equal(t, model.Lits("[Auth] Logout"), notice.InputTypes)
	assert.Equal(t, []model.Token{model.Void}, notice.ReturnTypes)

	assert.Equal(t, model.Summary{Files: 3, Effects: 6, Roots: 6, Suppressed: 2, Unknown: 1}, res.Summary)

	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "[Auth] Login Redirct", res.Suggestions[0].Action)
	assert.Equal(t, "[Auth] Login Redirect", res.Suggestions[0].Nearest)
	assert.Equal(t, 1, res.Suggestions[0].Distance)
	assert.Equal(t, "loginFailure$", res.Suggestions[0].Origin)

	require.NotEmpty(t, res.Unhandled)
	assert.Equal(t, "[Auth] Login Redirct", res.Unhandled[0].Action)
	assert.NotEmpty(t, res.Ranks)
}

func TestRunInvalidSourceAborts(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), config.Default(), []string{
		filepath.Join("testdata", "events"),
		filepath.Join("testdata", "broken"),
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, errs.ErrInvalidSource)

	var se *errs.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, filepath.Join("testdata", "broken", "broken.effects.ts"), se.Path)
	assert.Equal(t, errs.ExitInvalidSource, errs.ExitCode(err))
}

func TestRunMissingPath(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), config.Default(), []string{filepath.Join("testdata", "nope")})
	assert.ErrorIs(t, err, errs.ErrPathNotFound)
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), config.Default(), []string{t.TempDir()})
	assert.ErrorIs(t, err, errs.ErrNoFiles)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Workers = 4
	paths := []string{filepath.Join("testdata", "auth"), filepath.Join("testdata", "events")}

	first, err := Run(context.Background(), cfg, paths)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg, paths)
	require.NoError(t, err)

	a, err := json.Marshal(first.Mappings)
	require.NoError(t, err)
	b, err := json.Marshal(second.Mappings)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunNamespacedFactory(t *testing.T) {
	t.Parallel()

	res, err := Run(context.Background(), config.Default(), []string{filepath.Join("testdata", "namespace")})
	require.NoError(t, err)
	assert.Equal(t, []string{"decorated$", "qualified$", "quiet$", "plain$"}, names(res.Mappings))

	qualified := byName(t, res.Mappings, "qualified$")
	assert.Equal(t, model.Lits("C"), qualified.InputTypes)
	assert.Equal(t, model.Lits("D"), qualified.ReturnTypes)

	quiet := byName(t, res.Mappings, "quiet$")
	assert.Equal(t, model.Lits("E"), quiet.InputTypes)
	assert.Equal(t, []model.Token{model.Void}, quiet.ReturnTypes)
}

func TestRunHonorsMarker(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Marker = "Saga"
	cfg.Factories = nil

	res, err := Run(context.Background(), cfg, []string{filepath.Join("testdata", "auth")})
	require.NoError(t, err)
	assert.Empty(t, res.Mappings)
	assert.Empty(t, res.Forest)
}

func TestLoadKeepsOrder(t *testing.T) {
	t.Parallel()

	entries, err := Discover(config.Default(), []string{filepath.Join("testdata", "auth")})
	require.NoError(t, err)

	files, err := Load(context.Background(), entries, 2)
	require.NoError(t, err)
	require.Len(t, files, len(entries))
	for i, f := range files {
		assert.Equal(t, entries[i].Path, f.Path)
	}
}

func TestAnalyzeLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New("debug", "text", &buf)
	require.NoError(t, err)
	ctx := logging.WithLogger(context.Background(), logger)

	_, err = Run(ctx, config.Default(), []string{filepath.Join("testdata", "auth")})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=loaded")
	assert.Contains(t, out, "msg=\"analysis complete\"")
	assert.Contains(t, out, "msg=\"unresolved tokens\" count=1")
	assert.True(t, strings.Contains(out, "nearest=\"[Auth] Login Redirect\""), out)
}
