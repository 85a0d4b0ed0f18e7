package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflorenc/rainmaker-workbench/internal/models"
	"github.com/rflorenc/rainmaker-workbench/internal/rainmaker"
)

type fakeSession struct {
	loginErr  error
	nodes     any
	nodesErr  error
	params    any
	paramsErr error

	calls  []string
	closed int
}

func (f *fakeSession) Login(_ context.Context, username, password string) error {
	f.calls = append(f.calls, "login")
	return f.loginErr
}

func (f *fakeSession) GetNodes(_ context.Context) (any, error) {
	f.calls = append(f.calls, "nodes")
	return f.nodes, f.nodesErr
}

func (f *fakeSession) GetParams(_ context.Context, nodeID string) (any, error) {
	f.calls = append(f.calls, "params:"+nodeID)
	return f.params, f.paramsErr
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

var testCreds = models.Credentials{Username: "me@example.com", Password: "secret"}

func run(t *testing.T, s *fakeSession, creds models.Credentials) (Result, string, int) {
	t.Helper()
	var out bytes.Buffer
	connects := 0
	r := &Runner{
		BaseURL: rainmaker.DefaultBaseURL,
		Out:     &out,
		Connect: func(baseURL string) Session {
			connects++
			assert.Equal(t, rainmaker.DefaultBaseURL, baseURL)
			return s
		},
	}
	res := r.Run(context.Background(), creds)
	return res, out.String(), connects
}

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := rainmaker.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestRun_MissingCredentials(t *testing.T) {
	cases := map[string]models.Credentials{
		"neither":       {},
		"only username": {Username: "me@example.com"},
		"only password": {Password: "secret"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			s := &fakeSession{}
			res, out, connects := run(t, s, creds)

			assert.Equal(t, "Credentials not provided. Set RAINMAKER_USERNAME and RAINMAKER_PASSWORD environment variables.\n", out)
			assert.Zero(t, connects)
			assert.Empty(t, s.calls)
			assert.True(t, res.CredentialsMissing())
			assert.Equal(t, rainmaker.ErrCatCredentials, res.Category())
			assert.Equal(t, StageCredentials, res.Stage)
		})
	}
}

func TestRun_LoginFailure(t *testing.T) {
	s := &fakeSession{loginErr: &rainmaker.Error{Category: rainmaker.ErrCatAuth, Message: "Incorrect user name or password"}}
	res, out, _ := run(t, s, testCreds)

	assert.Equal(t, "Login failed: AuthenticationError Incorrect user name or password\n", out)
	assert.Equal(t, []string{"login"}, s.calls)
	assert.Equal(t, 1, s.closed)
	assert.Equal(t, StageLogin, res.Stage)
	assert.Equal(t, rainmaker.ErrCatAuth, res.Category())
	assert.False(t, res.OK())
}

func TestRun_UnclassifiedLoginFailure(t *testing.T) {
	s := &fakeSession{loginErr: errors.New("something odd")}
	res, out, _ := run(t, s, testCreds)

	assert.Equal(t, "Login failed: UnexpectedError something odd\n", out)
	assert.Equal(t, rainmaker.ErrCatUnexpected, res.Category())
}

func TestRun_NodesFailure(t *testing.T) {
	s := &fakeSession{nodesErr: &rainmaker.Error{Category: rainmaker.ErrCatNetwork, Message: "GET user/nodes", Cause: errors.New("connection reset")}}
	res, out, _ := run(t, s, testCreds)

	assert.Equal(t, "Failed to fetch nodes: NetworkError GET user/nodes: connection reset\n", out)
	assert.Equal(t, []string{"login", "nodes"}, s.calls)
	assert.Equal(t, 1, s.closed)
	assert.Equal(t, StageNodes, res.Stage)
}

func TestRun_WrappedNodes(t *testing.T) {
	s := &fakeSession{
		nodes:  mustDecode(t, `{"nodes": [{"nodeid": "a1", "name": "Lamp"}]}`),
		params: mustDecode(t, `{"a1": {"power": true, "brightness": 80}}`),
	}
	res, out, _ := run(t, s, testCreds)

	assert.Contains(t, out, "Found 1 nodes\n")
	assert.Contains(t, out, "- a1 (name: Lamp)\n")
	assert.Contains(t, out, "Sample param keys for node a1: ['power', 'brightness']\n")
	assert.Equal(t, []string{"login", "nodes", "params:a1"}, s.calls)
	assert.True(t, res.OK())
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, "a1", res.FirstNodeID)
	assert.Equal(t, []NodeSummary{{ID: "a1", Name: "Lamp"}}, res.Nodes)
}

func TestRun_EmptyNodeList(t *testing.T) {
	s := &fakeSession{nodes: mustDecode(t, `[]`)}
	res, out, _ := run(t, s, testCreds)

	assert.Equal(t, "Found 0 nodes\n", out)
	assert.Equal(t, []string{"login", "nodes"}, s.calls)
	assert.True(t, res.OK())
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, 1, s.closed)
}

func TestRun_ParamsFailure(t *testing.T) {
	s := &fakeSession{
		nodes:     mustDecode(t, `["n-1","n-2"]`),
		paramsErr: &rainmaker.Error{Category: rainmaker.ErrCatAPI, Message: "Node not found"},
	}
	res, out, _ := run(t, s, testCreds)

	want := "Found 2 nodes\n- n-1 (name: )\n- n-2 (name: )\nFailed to fetch params for node: n-1 APIError Node not found\n"
	assert.Equal(t, want, out)
	assert.Equal(t, StageParams, res.Stage)
	assert.Equal(t, "n-1", res.FirstNodeID)
	assert.Equal(t, 1, s.closed)
}

func TestRun_ListsAtMostTwentyNodes(t *testing.T) {
	items := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		items = append(items, fmt.Sprintf(`{"id":"n%02d"}`, i))
	}
	s := &fakeSession{
		nodes:  mustDecode(t, "["+strings.Join(items, ",")+"]"),
		params: mustDecode(t, `{}`),
	}
	res, out, _ := run(t, s, testCreds)

	assert.Contains(t, out, "Found 25 nodes\n")
	assert.Contains(t, out, "- n19 (name: )\n")
	assert.NotContains(t, out, "- n20")
	assert.Len(t, res.Nodes, MaxListedNodes)
	assert.Equal(t, 25, res.NodeCount)
	assert.Contains(t, out, "Sample param keys for node n00: []\n")
}

func TestRun_AgainstClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/login2":
			json.NewEncoder(w).Encode(map[string]string{"status": "success", "accesstoken": "tok"})
		case "/v1/user/nodes":
			w.Write([]byte(`{"nodes":{"b2":{"node_id":"b2","Name":"Fan"},"a1":{"nodeid":"a1"}}}`))
		case "/v1/user/nodes/params":
			assert.Equal(t, "b2", r.URL.Query().Get("nodeid"))
			w.Write([]byte(`{"Fan":{"Speed":3,"Power":false},"Time":{"TZ":"UTC"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	var out bytes.Buffer
	r := &Runner{BaseURL: ts.URL + "/v1/", Connect: ClientConnector(nil), Out: &out}
	res := r.Run(context.Background(), testCreds)

	require.True(t, res.OK(), "run failed: %v", res.Err)
	want := "Found 2 nodes\n- b2 (name: Fan)\n- a1 (name: )\nSample param keys for node b2: ['Fan', 'Time']\n"
	assert.Equal(t, want, out.String())
}

func TestResult_Summary(t *testing.T) {
	res := Result{Stage: StageParams, Err: &rainmaker.Error{Category: rainmaker.ErrCatAPI}, NodeCount: 3, FirstNodeID: "a1"}
	s := res.Summary()
	assert.Equal(t, "params", s.Stage)
	assert.Equal(t, "APIError", s.Category)
	assert.Equal(t, 3, s.NodeCount)
	assert.Equal(t, "a1", s.FirstNodeID)

	assert.Empty(t, Result{Stage: StageDone}.Summary().Category)
}
