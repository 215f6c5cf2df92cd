// Package escrow exposes escrow.v1.EscrowService over gRPC. Messages are
// google.protobuf.Struct values whose fields follow the JSON shapes in
// messages.go.
package escrow

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "escrow.v1.EscrowService"

// Method names served by ServiceName.
const (
	MethodCreatePaymentToken     = "CreatePaymentToken"
	MethodMintTokens             = "MintTokens"
	MethodApproveAllowance       = "ApproveAllowance"
	MethodGetBalance             = "GetBalance"
	MethodApprovePaymentToken    = "ApprovePaymentToken"
	MethodSetBetaTester          = "SetBetaTester"
	MethodSetBetaMode            = "SetBetaMode"
	MethodCreateProject          = "CreateProject"
	MethodPledge                 = "Pledge"
	MethodResolveMilestone       = "ResolveMilestone"
	MethodCheckOnchainTarget     = "CheckOnchainTarget"
	MethodReportMilestoneOverdue = "ReportMilestoneOverdue"
	MethodUpdateProjectDetails   = "UpdateProjectDetails"
	MethodSetGraceExitWaitTime   = "SetGraceExitWaitTime"
	MethodGracePeriodRefund      = "GracePeriodRefund"
	MethodFailureRefund          = "FailureRefund"
	MethodClaimSuccessTokens     = "ClaimSuccessTokens"
	MethodGetProject             = "GetProject"
	MethodListProjects           = "ListProjects"
	MethodListProjectEvents      = "ListProjectEvents"
)

// EscrowServer is the server API for escrow.v1.EscrowService.
type EscrowServer interface {
	CreatePaymentToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MintTokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApproveAllowance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApprovePaymentToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetBetaTester(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetBetaMode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pledge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveMilestone(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckOnchainTarget(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReportMilestoneOverdue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProjectDetails(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetGraceExitWaitTime(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GracePeriodRefund(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FailureRefund(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClaimSuccessTokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProjects(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProjectEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(EscrowServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes escrow.v1.EscrowService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EscrowServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodCreatePaymentToken, EscrowServer.CreatePaymentToken),
		unary(MethodMintTokens, EscrowServer.MintTokens),
		unary(MethodApproveAllowance, EscrowServer.ApproveAllowance),
		unary(MethodGetBalance, EscrowServer.GetBalance),
		unary(MethodApprovePaymentToken, EscrowServer.ApprovePaymentToken),
		unary(MethodSetBetaTester, EscrowServer.SetBetaTester),
		unary(MethodSetBetaMode, EscrowServer.SetBetaMode),
		unary(MethodCreateProject, EscrowServer.CreateProject),
		unary(MethodPledge, EscrowServer.Pledge),
		unary(MethodResolveMilestone, EscrowServer.ResolveMilestone),
		unary(MethodCheckOnchainTarget, EscrowServer.CheckOnchainTarget),
		unary(MethodReportMilestoneOverdue, EscrowServer.ReportMilestoneOverdue),
		unary(MethodUpdateProjectDetails, EscrowServer.UpdateProjectDetails),
		unary(MethodSetGraceExitWaitTime, EscrowServer.SetGraceExitWaitTime),
		unary(MethodGracePeriodRefund, EscrowServer.GracePeriodRefund),
		unary(MethodFailureRefund, EscrowServer.FailureRefund),
		unary(MethodClaimSuccessTokens, EscrowServer.ClaimSuccessTokens),
		unary(MethodGetProject, EscrowServer.GetProject),
		unary(MethodListProjects, EscrowServer.ListProjects),
		unary(MethodListProjectEvents, EscrowServer.ListProjectEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow/v1/escrow.proto",
}

// RegisterEscrowServer registers srv on s.
func RegisterEscrowServer(s grpc.ServiceRegistrar, srv EscrowServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(EscrowServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
