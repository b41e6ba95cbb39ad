package delegation

import (
	"context"
	"errors"
	"math/big"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/stakepool/liquidcore/common/logging"
	"github.com/stakepool/liquidcore/common/quantity"
)

var logger = logging.GetLogger("delegation/grpc")

// ErrMalformedAmount is returned when a validator sidecar sends back an
// amount string that does not parse as a non-negative base-10 integer.
var ErrMalformedAmount = errors.New("delegation: malformed amount in grpc reply")

const (
	callDepositAndStake     = "/stakepool.delegation.v1.Endpoint/DepositAndStake"
	callUnstake             = "/stakepool.delegation.v1.Endpoint/Unstake"
	callWithdraw            = "/stakepool.delegation.v1.Endpoint/Withdraw"
	callGetAccountTotalBal  = "/stakepool.delegation.v1.Endpoint/GetAccountTotalBalance"
	callGetAccount          = "/stakepool.delegation.v1.Endpoint/GetAccount"
)

// amountRequest and amountReply are the wire messages shared by
// DepositAndStake, Unstake and Withdraw; they carry nothing but the
// base-unit amount as a decimal string (amounts exceed the safe range of
// a protobuf fixed64 for some deployments, so they travel as strings).
type amountRequest struct {
	Amount string `protobuf:"bytes,1,opt,name=amount"`
}

func (m *amountRequest) Reset()         { *m = amountRequest{} }
func (m *amountRequest) String() string { return m.Amount }
func (m *amountRequest) ProtoMessage()  {}

type emptyReply struct{}

func (m *emptyReply) Reset()         { *m = emptyReply{} }
func (m *emptyReply) String() string { return "" }
func (m *emptyReply) ProtoMessage()  {}

type totalBalanceReply struct {
	Total string `protobuf:"bytes,1,opt,name=total"`
}

func (m *totalBalanceReply) Reset()         { *m = totalBalanceReply{} }
func (m *totalBalanceReply) String() string { return m.Total }
func (m *totalBalanceReply) ProtoMessage()  {}

type accountReply struct {
	StakedBalance   string `protobuf:"bytes,1,opt,name=staked_balance"`
	UnstakedBalance string `protobuf:"bytes,2,opt,name=unstaked_balance"`
	CanWithdraw     bool   `protobuf:"varint,3,opt,name=can_withdraw"`
}

func (m *accountReply) Reset()         { *m = accountReply{} }
func (m *accountReply) String() string { return m.StakedBalance }
func (m *accountReply) ProtoMessage()  {}

// GRPCEndpoint is an Endpoint backed by a gRPC connection to a single
// validator's delegation sidecar.
type GRPCEndpoint struct {
	conn *grpc.ClientConn
}

// DialGRPCEndpoint dials target using TLS creds, wiring in client-side
// retry-with-backoff middleware so a transient connectivity blip does not
// immediately surface as an Unstake/Withdraw failure up at the pool level.
func DialGRPCEndpoint(ctx context.Context, target string, creds credentials.TransportCredentials) (*GRPCEndpoint, error) {
	retryOpts := []grpc_retry.CallOption{
		grpc_retry.WithMax(3),
		grpc_retry.WithBackoff(grpc_retry.BackoffExponentialWithJitter(100*time.Millisecond, 0.2)),
	}

	transportOpt := grpc.WithInsecure()
	if creds != nil {
		transportOpt = grpc.WithTransportCredentials(creds)
	}

	conn, err := grpc.DialContext(ctx, target,
		transportOpt,
		grpc.WithBlock(),
		grpc.WithUnaryInterceptor(grpc_middleware.ChainUnaryClient(
			grpc_retry.UnaryClientInterceptor(retryOpts...),
		)),
	)
	if err != nil {
		return nil, err
	}
	return &GRPCEndpoint{conn: conn}, nil
}

// Close tears down the underlying connection.
func (e *GRPCEndpoint) Close() error {
	return e.conn.Close()
}

func (e *GRPCEndpoint) DepositAndStake(ctx context.Context, amount *quantity.Quantity) error {
	req := &amountRequest{Amount: amount.String()}
	reply := &emptyReply{}
	return e.conn.Invoke(ctx, callDepositAndStake, req, reply)
}

func (e *GRPCEndpoint) Unstake(ctx context.Context, amount *quantity.Quantity) error {
	req := &amountRequest{Amount: amount.String()}
	reply := &emptyReply{}
	return e.conn.Invoke(ctx, callUnstake, req, reply)
}

func (e *GRPCEndpoint) Withdraw(ctx context.Context, amount *quantity.Quantity) error {
	req := &amountRequest{Amount: amount.String()}
	reply := &emptyReply{}
	return e.conn.Invoke(ctx, callWithdraw, req, reply)
}

func (e *GRPCEndpoint) GetAccountTotalBalance(ctx context.Context) (*quantity.Quantity, error) {
	reply := &totalBalanceReply{}
	if err := e.conn.Invoke(ctx, callGetAccountTotalBal, &emptyReply{}, reply); err != nil {
		return nil, err
	}
	return parseQuantity(reply.Total)
}

func (e *GRPCEndpoint) GetAccount(ctx context.Context) (AccountView, error) {
	reply := &accountReply{}
	if err := e.conn.Invoke(ctx, callGetAccount, &emptyReply{}, reply); err != nil {
		return AccountView{}, err
	}
	staked, err := parseQuantity(reply.StakedBalance)
	if err != nil {
		return AccountView{}, err
	}
	unstaked, err := parseQuantity(reply.UnstakedBalance)
	if err != nil {
		return AccountView{}, err
	}
	return AccountView{
		StakedBalance:   staked,
		UnstakedBalance: unstaked,
		CanWithdraw:     reply.CanWithdraw,
	}, nil
}

func parseQuantity(s string) (*quantity.Quantity, error) {
	v := new(big.Int)
	if _, ok := v.SetString(s, 10); !ok {
		return nil, ErrMalformedAmount
	}
	return quantity.NewFromBigInt(v)
}
