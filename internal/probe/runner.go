// Package probe runs the read-only RainMaker account diagnostic: log in, list
// nodes, sample the parameters of the first node and print a summary that
// never includes the credentials.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/rflorenc/rainmaker-workbench/internal/models"
	"github.com/rflorenc/rainmaker-workbench/internal/rainmaker"
)

// Session is an authenticated conversation with the RainMaker API.
// *rainmaker.Client satisfies it.
type Session interface {
	Login(ctx context.Context, username, password string) error
	GetNodes(ctx context.Context) (any, error)
	GetParams(ctx context.Context, nodeID string) (any, error)
	Close() error
}

// Connector opens a Session bound to baseURL.
type Connector func(baseURL string) Session

// ClientConnector returns a Connector that opens real API clients.
func ClientConnector(logger *zap.Logger, configure ...func(*rainmaker.Client)) Connector {
	return func(baseURL string) Session {
		c := rainmaker.NewClient(baseURL, logger)
		for _, fn := range configure {
			fn(c)
		}
		return c
	}
}

// Runner performs one diagnostic run per Run call.
type Runner struct {
	BaseURL string
	Connect Connector
	Out     io.Writer
	Logger  *zap.Logger
}

// NewRunner returns a Runner against the public API printing to stdout.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		BaseURL: rainmaker.DefaultBaseURL,
		Connect: ClientConnector(logger),
		Out:     os.Stdout,
		Logger:  logger,
	}
}

// Run executes the diagnostic. It never returns an error: every failure is
// printed as one line and reported in the Result.
func (r *Runner) Run(ctx context.Context, creds models.Credentials) Result {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}

	if !creds.Complete() {
		fmt.Fprintln(out, ErrCredentialsMissing.Message)
		return Result{Stage: StageCredentials, Err: ErrCredentialsMissing}
	}

	session := r.Connect(r.BaseURL)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("closing session", zap.Error(err))
		}
	}()

	res := Result{Stage: StageLogin}
	if err := session.Login(ctx, creds.Username, creds.Password); err != nil {
		log.Debug("login failed", zap.String("category", string(rainmaker.CategoryOf(err))), zap.Error(err))
		fmt.Fprintln(out, "Login failed:", rainmaker.CategoryOf(err), message(err))
		res.Err = err
		return res
	}

	res.Stage = StageNodes
	raw, err := session.GetNodes(ctx)
	if err != nil {
		log.Debug("get nodes failed", zap.Error(err))
		fmt.Fprintln(out, "Failed to fetch nodes:", rainmaker.CategoryOf(err), message(err))
		res.Err = err
		return res
	}

	nodes := NormalizeNodes(raw)
	res.NodeCount = len(nodes)
	fmt.Fprintf(out, "Found %d nodes\n", len(nodes))
	for i, n := range nodes {
		if i == MaxListedNodes {
			break
		}
		s := NodeSummary{ID: NodeID(n), Name: NodeName(n)}
		res.Nodes = append(res.Nodes, s)
		fmt.Fprintf(out, "- %s (name: %s)\n", s.ID, s.Name)
	}
	if len(nodes) == 0 {
		res.Stage = StageDone
		return res
	}

	res.Stage = StageParams
	firstID := NodeID(nodes[0])
	res.FirstNodeID = firstID
	params, err := session.GetParams(ctx, firstID)
	if err != nil {
		log.Debug("get params failed", zap.String("node_id", firstID), zap.Error(err))
		fmt.Fprintln(out, "Failed to fetch params for node:", firstID, rainmaker.CategoryOf(err), message(err))
		res.Err = err
		return res
	}

	res.ParamKeys = ParamKeys(params, MaxParamKeys)
	fmt.Fprintf(out, "Sample param keys for node %s: %s\n", firstID, FormatKeys(res.ParamKeys))
	res.Stage = StageDone
	log.Debug("diagnostic finished", zap.Int("nodes", res.NodeCount), zap.Int("param_keys", len(res.ParamKeys)))
	return res
}

// message is the human part of err without the category.
func message(err error) string {
	var rmErr *rainmaker.Error
	if errors.As(err, &rmErr) {
		return rmErr.Error()
	}
	return err.Error()
}
