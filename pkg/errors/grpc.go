package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCStatus converts err to a gRPC status by its Kind. Errors that already
// carry a status (returned by status.Error or a downstream client) keep it.
func GRPCStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}
	return status.New(transport[KindOf(err)].grpc, err.Error())
}

// ToGRPCError converts err into an error a gRPC handler can return.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	return GRPCStatus(err).Err()
}
