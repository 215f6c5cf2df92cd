package escrow

import (
	"context"
	"crypto/ed25519"
	"math"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/clock"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/factory"
	"github.com/louisbranch/commongood/internal/services/escrow/projection"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/sqlite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcmetadata "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	owner    = "0xad"
	team     = "0xa1"
	approver = "0xa2"
	pledger  = "0xa3"
)

var start = time.Date(2026, time.May, 4, 9, 0, 0, 0, time.UTC)

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	clock  *clock.Manual
	signer *callertoken.Signer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "escrow.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewManual(start)
	projector := projection.New(store, store)
	f, err := factory.New(factory.Config{Owner: owner}, clk, projector)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	projector.Attach(f)

	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer, err := callertoken.NewSigner(owner, private, time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := callertoken.NewVerifier(owner, public)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(func() (string, error) {
		return "req-generated", nil
	}, verifier)))
	RegisterEscrowServer(server, NewService(f, store, store))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: NewClient(conn, signer), conn: conn, clock: clk, signer: signer}
}

// setup deploys a payment token, funds the pledger and creates a project
// with one externally approved milestone.
func (h *harness) setup(t *testing.T, ctx context.Context) (string, ProjectView) {
	t.Helper()
	tok, err := h.client.CreatePaymentToken(ctx, owner, CreatePaymentTokenRequest{Name: "Test USD", Symbol: "TUSD"})
	if err != nil {
		t.Fatalf("create payment token: %v", err)
	}
	if _, err := h.client.ApprovePaymentToken(ctx, owner, ApprovePaymentTokenRequest{Token: tok.Address, Approved: true}); err != nil {
		t.Fatalf("approve payment token: %v", err)
	}
	if _, err := h.client.MintTokens(ctx, owner, MintTokensRequest{Token: tok.Address, To: pledger, Amount: "500"}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	view, err := h.client.CreateProject(ctx, team, CreateProjectRequest{
		TeamWallet:         team,
		PaymentToken:       tok.Address,
		TokenName:          "Garden",
		TokenSymbol:        "GRD",
		InitialTokenSupply: "1000",
		MinPledgedSum:      "10",
		Milestones: []MilestoneMessage{{
			Approver: approver,
			Value:    "40",
			Due:      start.Add(24 * time.Hour).Unix(),
		}},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := h.client.ApproveAllowance(ctx, pledger, ApproveAllowanceRequest{Token: tok.Address, Spender: view.Address, Amount: "500"}); err != nil {
		t.Fatalf("approve allowance: %v", err)
	}
	return tok.Address, view
}

func TestProjectLifecycleOverGRPC(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	payment, created := h.setup(t, ctx)

	if created.State != "IN_PROGRESS" || len(created.Milestones) != 1 || created.ProjectToken == "" {
		t.Fatalf("created = %+v", created)
	}
	if created.Milestones[0].Approver != approver || created.Milestones[0].Result != "UNRESOLVED" {
		t.Fatalf("milestone = %+v", created.Milestones[0])
	}

	pledged, err := h.client.Pledge(ctx, pledger, PledgeRequest{Project: created.Address, Sum: "100", PaymentToken: payment})
	if err != nil {
		t.Fatalf("pledge: %v", err)
	}
	if pledged.VaultBalance != "100" || pledged.NumPledgers != 1 || len(pledged.Pledgers) != 1 {
		t.Fatalf("pledged = %+v", pledged)
	}

	resolved, err := h.client.ResolveMilestone(ctx, approver, ResolveMilestoneRequest{Project: created.Address, Index: 0, Succeeded: true, Note: "planted"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.State != "SUCCEEDED" || resolved.VaultBalance != "0" || resolved.SucceededMilestones != 1 {
		t.Fatalf("resolved = %+v", resolved)
	}

	balance, err := h.client.GetBalance(ctx, GetBalanceRequest{Token: payment, Holder: team})
	if err != nil {
		t.Fatalf("team balance: %v", err)
	}
	if balance.Balance != "100" {
		t.Fatalf("team balance = %s, want 100", balance.Balance)
	}

	claimed, err := h.client.ClaimSuccessTokens(ctx, pledger, ProjectRequest{Project: created.Address})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Pledgers[0].ClaimedReward {
		t.Fatalf("pledger = %+v, want claimed reward", claimed.Pledgers[0])
	}
	reward, err := h.client.GetBalance(ctx, GetBalanceRequest{Token: created.ProjectToken, Holder: pledger})
	if err != nil {
		t.Fatalf("reward balance: %v", err)
	}
	if reward.Balance != "1000" {
		t.Fatalf("reward balance = %s, want 1000", reward.Balance)
	}

	events, err := h.client.ListProjectEvents(ctx, ListProjectEventsRequest{Project: created.Address})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	wantTypes := []string{"project.created", "pledge.added", "milestone.resolved", "project.state_changed", "pledger.success_token_transfer"}
	if len(events.Events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(events.Events), len(wantTypes))
	}
	for i, evt := range events.Events {
		if evt.Type != wantTypes[i] || evt.Seq != uint64(i+1) || evt.Hash == "" {
			t.Fatalf("event %d = %+v", i, evt)
		}
	}
	if events.Events[1].Payload["pledger"] != pledger {
		t.Fatalf("pledge payload = %v", events.Events[1].Payload)
	}

	pledgerEvents, err := h.client.ListProjectEvents(ctx, ListProjectEventsRequest{
		Project: created.Address,
		Filter:  `entity_type = "pledger" AND seq > 1`,
	})
	if err != nil {
		t.Fatalf("list filtered events: %v", err)
	}
	if len(pledgerEvents.Events) != 2 || pledgerEvents.Events[0].Type != "pledge.added" || pledgerEvents.Events[1].Type != "pledger.success_token_transfer" {
		t.Fatalf("filtered events = %+v", pledgerEvents.Events)
	}

	withFilter, err := h.client.ListProjects(ctx, ListProjectsRequest{State: "SUCCEEDED", Filter: `num_pledgers = 1 AND succeeded_milestones >= 1`})
	if err != nil {
		t.Fatalf("list filtered projects: %v", err)
	}
	if len(withFilter.Projects) != 1 || withFilter.Projects[0].Address != created.Address {
		t.Fatalf("filtered projects = %+v", withFilter.Projects)
	}
	none, err := h.client.ListProjects(ctx, ListProjectsRequest{Filter: `num_pledgers > 1 OR team_wallet = "0xff"`})
	if err != nil {
		t.Fatalf("list unmatched projects: %v", err)
	}
	if len(none.Projects) != 0 {
		t.Fatalf("unmatched projects = %+v", none.Projects)
	}

	listed, err := h.client.ListProjects(ctx, ListProjectsRequest{State: "succeeded"})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(listed.Projects) != 1 || listed.Projects[0].Address != created.Address || listed.Projects[0].State != "SUCCEEDED" {
		t.Fatalf("listed = %+v", listed)
	}
	inProgress, err := h.client.ListProjects(ctx, ListProjectsRequest{State: "IN_PROGRESS"})
	if err != nil {
		t.Fatalf("list in progress: %v", err)
	}
	if len(inProgress.Projects) != 0 {
		t.Fatalf("in progress = %+v, want none", inProgress.Projects)
	}
}

func TestOverdueMilestoneFailsProjectAndRefunds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	payment, created := h.setup(t, ctx)

	if _, err := h.client.Pledge(ctx, pledger, PledgeRequest{Project: created.Address, Sum: "60", PaymentToken: payment}); err != nil {
		t.Fatalf("pledge: %v", err)
	}
	h.clock.Advance(48 * time.Hour)

	reported, err := h.client.ReportMilestoneOverdue(ctx, pledger, MilestoneRequest{Project: created.Address, Index: 0})
	if err != nil {
		t.Fatalf("report overdue: %v", err)
	}
	if reported.State != "IN_PROGRESS" || !reported.Milestones[0].Overdue {
		t.Fatalf("reported = %+v", reported)
	}

	// Approving an overdue milestone fails it instead.
	failed, err := h.client.ResolveMilestone(ctx, approver, ResolveMilestoneRequest{Project: created.Address, Index: 0, Succeeded: true})
	if err != nil {
		t.Fatalf("resolve overdue: %v", err)
	}
	if failed.State != "FAILED" || failed.Failure == nil || failed.Failure.MilestoneIndex != 0 || failed.Milestones[0].Result != "FAILED" {
		t.Fatalf("failed = %+v", failed)
	}

	refunded, err := h.client.FailureRefund(ctx, pledger, ProjectRequest{Project: created.Address})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.VaultBalance != "0" {
		t.Fatalf("vault = %s, want 0", refunded.VaultBalance)
	}
	balance, err := h.client.GetBalance(ctx, GetBalanceRequest{Token: payment, Holder: pledger})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Balance != "500" {
		t.Fatalf("pledger balance = %s, want 500", balance.Balance)
	}
}

func TestDomainErrorsCarryDetails(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	payment, created := h.setup(t, ctx)

	localized := metadata.WithLocale(ctx, "pt-BR")
	_, err := h.client.Pledge(localized, pledger, PledgeRequest{Project: created.Address, Sum: "5", PaymentToken: payment})
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.FailedPrecondition {
		t.Fatalf("pledge below minimum = %v, want FailedPrecondition", err)
	}
	var info *errdetails.ErrorInfo
	var message *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			message = d
		}
	}
	if info == nil || info.GetReason() != "PLEDGE_BELOW_MINIMUM" || info.GetMetadata()["Minimum"] != "10" {
		t.Fatalf("error info = %v", info)
	}
	if message == nil || message.GetLocale() != "pt-BR" || message.GetMessage() == "" {
		t.Fatalf("localized message = %v", message)
	}

	tests := []struct {
		name   string
		caller string
		method string
		req    any
		want   codes.Code
	}{
		{name: "missing caller", method: MethodPledge, req: PledgeRequest{Project: created.Address, Sum: "20", PaymentToken: payment}, want: codes.Unauthenticated},
		{name: "not owner", caller: team, method: MethodCreatePaymentToken, req: CreatePaymentTokenRequest{Name: "X", Symbol: "X"}, want: codes.PermissionDenied},
		{name: "unknown project", method: MethodGetProject, req: ProjectRequest{Project: "project:missing"}, want: codes.NotFound},
		{name: "bad amount", caller: pledger, method: MethodPledge, req: PledgeRequest{Project: created.Address, Sum: "ten", PaymentToken: payment}, want: codes.InvalidArgument},
		{name: "wrong approver", caller: pledger, method: MethodResolveMilestone, req: ResolveMilestoneRequest{Project: created.Address, Index: 0, Succeeded: true}, want: codes.PermissionDenied},
		{name: "index out of range", caller: approver, method: MethodResolveMilestone, req: ResolveMilestoneRequest{Project: created.Address, Index: 4, Succeeded: true}, want: codes.OutOfRange},
		{name: "unknown state filter", method: MethodListProjects, req: ListProjectsRequest{State: "paused"}, want: codes.InvalidArgument},
		{name: "malformed filter", method: MethodListProjects, req: ListProjectsRequest{Filter: `state = `}, want: codes.InvalidArgument},
		{name: "unknown filter field", method: MethodListProjectEvents, req: ListProjectEventsRequest{Project: created.Address, Filter: `payload = "x"`}, want: codes.InvalidArgument},
		{name: "vault as pledger", caller: created.Vault, method: MethodPledge, req: PledgeRequest{Project: created.Address, Sum: "20", PaymentToken: payment}, want: codes.InvalidArgument},
		{name: "project as pledger", caller: created.Address, method: MethodPledge, req: PledgeRequest{Project: created.Address, Sum: "20", PaymentToken: payment}, want: codes.InvalidArgument},
		{name: "wait time overflow", caller: team, method: MethodSetGraceExitWaitTime, req: SetGraceExitWaitTimeRequest{Project: created.Address, Seconds: math.MaxInt64}, want: codes.InvalidArgument},
		{name: "negative wait time", caller: team, method: MethodSetGraceExitWaitTime, req: SetGraceExitWaitTimeRequest{Project: created.Address, Seconds: -1}, want: codes.InvalidArgument},
	}
	for _, tc := range tests {
		err := h.client.Call(ctx, tc.caller, tc.method, tc.req, nil)
		if got := status.Code(err); got != tc.want {
			t.Fatalf("%s: code = %v, want %v (%v)", tc.name, got, tc.want, err)
		}
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	in, err := structpb.NewStruct(map[string]any{"project": "project:x", "bogus": true})
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	err = h.conn.Invoke(context.Background(), FullMethod(MethodGetProject), in, new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	var header grpcmetadata.MD
	in, _ := Encode(ListProjectsRequest{})
	if err := h.conn.Invoke(ctx, FullMethod(MethodListProjects), in, new(structpb.Struct), grpc.Header(&header)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := metadata.FirstMetadataValue(header, metadata.RequestIDHeader); got != "req-generated" {
		t.Fatalf("request id = %q, want req-generated", got)
	}

	ctx = grpcmetadata.AppendToOutgoingContext(ctx, metadata.RequestIDHeader, "req-client")
	if err := h.conn.Invoke(ctx, FullMethod(MethodListProjects), in, new(structpb.Struct), grpc.Header(&header)); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := metadata.FirstMetadataValue(header, metadata.RequestIDHeader); got != "req-client" {
		t.Fatalf("request id = %q, want req-client", got)
	}
}

func TestCallerIdentityRequiresSignedToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	_, created := h.setup(t, ctx)
	resolve := ResolveMilestoneRequest{Project: created.Address, Index: 0, Succeeded: true}
	in, err := Encode(resolve)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	spoofed := grpcmetadata.AppendToOutgoingContext(ctx, "x-commongood-caller", approver)
	err = h.conn.Invoke(spoofed, FullMethod(MethodResolveMilestone), in, new(structpb.Struct))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("plain caller header code = %v, want Unauthenticated", status.Code(err))
	}

	_, foreignKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	forger, err := callertoken.NewSigner(owner, foreignKey, time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	_, err = NewClient(h.conn, forger).ResolveMilestone(ctx, approver, resolve)
	st, _ := status.FromError(err)
	if st.Code() != codes.Unauthenticated {
		t.Fatalf("forged token code = %v, want Unauthenticated", st.Code())
	}
	var reason string
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			reason = info.GetReason()
		}
	}
	if reason != "CALLER_TOKEN_INVALID" {
		t.Fatalf("reason = %q, want CALLER_TOKEN_INVALID", reason)
	}

	view, err := h.client.GetProject(ctx, ProjectRequest{Project: created.Address})
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if view.Milestones[0].Result != "UNRESOLVED" {
		t.Fatalf("milestone result = %s, want UNRESOLVED", view.Milestones[0].Result)
	}

	if _, err := h.client.ResolveMilestone(ctx, approver, resolve); err != nil {
		t.Fatalf("resolve with signed token: %v", err)
	}
}
