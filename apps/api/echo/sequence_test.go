package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mailroom/core/sequence"
	"github.com/trezcool/mailroom/core/template"
)

func Test_sequenceApi_sequenceQuery(t *testing.T) {
	app := setup(t)
	seq, err := app.seqs.Get("onboarding")
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "all", path: "/v1/sequences", wantCode: http.StatusOK, wantData: marchallList(t, seq)},
	})
}

func Test_sequenceApi_sequenceRetrieve(t *testing.T) {
	app := setup(t)
	seq, err := app.seqs.Get("onboarding")
	require.NoError(t, err)

	days := 3
	next := seq.Entries[2]

	runHTTPTests(t, app, []httpTest{
		{name: "plain", path: "/v1/sequences/onboarding", wantCode: http.StatusOK, wantData: marchallObj(t, seq)},
		{name: "name is case insensitive", path: "/v1/sequences/OnBoarding", wantCode: http.StatusOK, wantData: marchallObj(t, seq)},
		{
			name: "elapsed days", path: "/v1/sequences/onboarding?elapsed_days=3", wantCode: http.StatusOK,
			wantData: marchallObj(t, SequenceDetail{
				Sequence:    seq,
				ElapsedDays: &days,
				Due:         seq.Entries[:2],
				Next:        &next,
			}),
		},
		{
			name: "invalid elapsed days", path: "/v1/sequences/onboarding?elapsed_days=-1", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"elapsed_days": "elapsed_days must be a non-negative integer"}),
		},
		{name: "not found", path: "/v1/sequences/nope", wantCode: http.StatusNotFound},
	})

	// past the last entry
	req, rec := newRequest(http.MethodGet, "/v1/sequences/onboarding?elapsed_days=30")
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail SequenceDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Len(t, detail.Due, 3)
	assert.Nil(t, detail.Next)
}

func Test_sequenceApi_sequencePreview(t *testing.T) {
	app := setup(t)

	path := "/v1/sequences/onboarding/preview"
	body := []byte(`{"elapsed_days": 3, "context": {"firstName": "Maria"}}`)

	runHTTPTests(t, app, []httpTest{
		{name: "referenced template missing", method: http.MethodPost, path: path, body: body, wantCode: http.StatusNotFound},
		{name: "negative days", method: http.MethodPost, path: path, body: []byte(`{"elapsed_days": -1}`), wantCode: http.StatusBadRequest},
		{name: "unknown sequence", method: http.MethodPost, path: "/v1/sequences/nope/preview", body: body, wantCode: http.StatusNotFound},
	})

	createTemplate(t, app.svc, "welcome", template.CategoryAccount, true, true)

	req, rec := newRequest(http.MethodPost, path, body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rendered []sequence.RenderedEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))
	require.Len(t, rendered, 2)

	assert.Equal(t, "welcome", rendered[0].Entry.TemplateSlug)
	assert.Equal(t, "Welcome Maria!", rendered[0].Content.Subject)
	assert.Equal(t, []string{"appName"}, rendered[0].Diagnostics.Missing)

	assert.Equal(t, sequence.PhaseDesire, rendered[1].Entry.Phase)
	assert.Equal(t, "Tip for Maria", rendered[1].Content.Subject)
	assert.Equal(t, "<p>Hi Maria</p>", rendered[1].Content.Body)
	assert.Empty(t, rendered[1].Diagnostics.Missing)
}
