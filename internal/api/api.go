// Package api exposes the domain services as Connect unary procedures.
// Messages are plain Go structs carried by Codec; the acting user is taken
// from the context populated by middleware.RequireAuth.
package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/service"
)

const (
	AuthServiceName       = "settleup.v1.AuthService"
	SplitServiceName      = "settleup.v1.SplitService"
	SettlementServiceName = "settleup.v1.SettlementService"
	BalanceServiceName    = "settleup.v1.BalanceService"
	GroupServiceName      = "settleup.v1.GroupService"
)

const (
	RegisterProcedure    = "/" + AuthServiceName + "/Register"
	LoginProcedure       = "/" + AuthServiceName + "/Login"
	CurrentUserProcedure = "/" + AuthServiceName + "/CurrentUser"

	CreateTransactionProcedure        = "/" + SplitServiceName + "/CreateTransaction"
	GetTransactionProcedure           = "/" + SplitServiceName + "/GetTransaction"
	ValidateSplitProcedure            = "/" + SplitServiceName + "/ValidateSplit"
	CalculateEqualSplitProcedure      = "/" + SplitServiceName + "/CalculateEqualSplit"
	CalculatePercentageSplitProcedure = "/" + SplitServiceName + "/CalculatePercentageSplit"
	CreateSplitProcedure              = "/" + SplitServiceName + "/CreateSplit"
	UpdateSplitProcedure              = "/" + SplitServiceName + "/UpdateSplit"
	RemoveSplitProcedure              = "/" + SplitServiceName + "/RemoveSplit"

	CreateSettlementProcedure  = "/" + SettlementServiceName + "/CreateSettlement"
	GetSettlementProcedure     = "/" + SettlementServiceName + "/GetSettlement"
	ListSettlementsProcedure   = "/" + SettlementServiceName + "/ListSettlements"
	ConfirmSettlementProcedure = "/" + SettlementServiceName + "/ConfirmSettlement"
	DisputeSettlementProcedure = "/" + SettlementServiceName + "/DisputeSettlement"
	DeleteSettlementProcedure  = "/" + SettlementServiceName + "/DeleteSettlement"

	CalculateBalanceProcedure         = "/" + BalanceServiceName + "/CalculateBalance"
	GetFriendListProcedure            = "/" + BalanceServiceName + "/GetFriendList"
	GetFriendDetailsProcedure         = "/" + BalanceServiceName + "/GetFriendDetails"
	GetSimplifiedSettlementsProcedure = "/" + BalanceServiceName + "/GetSimplifiedSettlements"
	ListNotificationsProcedure        = "/" + BalanceServiceName + "/ListNotifications"

	CreateGroupProcedure                   = "/" + GroupServiceName + "/CreateGroup"
	GetGroupProcedure                      = "/" + GroupServiceName + "/GetGroup"
	ListGroupsProcedure                    = "/" + GroupServiceName + "/ListGroups"
	AddMembersProcedure                    = "/" + GroupServiceName + "/AddMembers"
	GetGroupBalancesProcedure              = "/" + GroupServiceName + "/GetGroupBalances"
	GetGroupSimplifiedSettlementsProcedure = "/" + GroupServiceName + "/GetGroupSimplifiedSettlements"
)

// PublicProcedures can be called without a bearer token.
var PublicProcedures = []string{RegisterProcedure, LoginProcedure}

// Server holds the services behind every procedure.
type Server struct {
	auth        *service.AuthService
	splits      *service.SplitService
	settlements *service.SettlementService
	balances    *service.BalanceService
	groups      *service.GroupService
}

// NewServer creates a Server.
func NewServer(
	authSvc *service.AuthService,
	splits *service.SplitService,
	settlements *service.SettlementService,
	balances *service.BalanceService,
	groups *service.GroupService,
) *Server {
	return &Server{
		auth:        authSvc,
		splits:      splits,
		settlements: settlements,
		balances:    balances,
		groups:      groups,
	}
}

type route struct {
	procedure string
	handler   http.Handler
}

// Mount registers every procedure on mux. The JSON codec is always
// installed; opts typically add the auth and logging interceptors.
func (s *Server) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	var routes []route
	routes = append(routes, s.authRoutes(opts)...)
	routes = append(routes, s.splitRoutes(opts)...)
	routes = append(routes, s.settlementRoutes(opts)...)
	routes = append(routes, s.balanceRoutes(opts)...)
	routes = append(routes, s.groupRoutes(opts)...)
	for _, r := range routes {
		mux.Handle(r.procedure, r.handler)
	}
}

// unary adapts a service call taking the acting user to a Connect handler.
func unary[Req, Res any](procedure string, fn func(ctx context.Context, actorID string, req *Req) (*Res, error), opts []connect.HandlerOption) route {
	handler := connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, middleware.GetUserID(ctx), req.Msg)
			if err != nil {
				return nil, toConnectError(procedure, err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
	return route{procedure: procedure, handler: handler}
}
