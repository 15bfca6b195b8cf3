// Package clients talks to services this one depends on.
package clients

import (
	"context"
	"fmt"
	"time"

	"account-service/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	addToFavoredUserMethod      = "/business.BusinessService/AddToFavoredUser"
	removeFromFavoredUserMethod = "/business.BusinessService/RemoveFromFavoredUser"
)

var _ interfaces.BusinessClient = (*BusinessGRPCClient)(nil)

// BusinessGRPCClient calls the business service. Requests and replies are
// google.protobuf.Struct messages.
type BusinessGRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *zap.Logger
}

// NewBusinessGRPCClient creates a client for target. The connection is established lazily.
func NewBusinessGRPCClient(target string, timeout time.Duration, logger *zap.Logger, opts ...grpc.DialOption) (*BusinessGRPCClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create business grpc client for %s: %w", target, err)
	}
	return &BusinessGRPCClient{
		conn:    conn,
		timeout: timeout,
		logger:  logger.Named("BusinessGRPCClient"),
	}, nil
}

func (c *BusinessGRPCClient) AddToFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error {
	return c.invoke(ctx, addToFavoredUserMethod, businessID, userID)
}

func (c *BusinessGRPCClient) RemoveFromFavoredUser(ctx context.Context, businessID string, userID uuid.UUID) error {
	return c.invoke(ctx, removeFromFavoredUserMethod, businessID, userID)
}

func (c *BusinessGRPCClient) invoke(ctx context.Context, method, businessID string, userID uuid.UUID) error {
	req, err := structpb.NewStruct(map[string]any{
		"businessId": businessID,
		"userId":     userID.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, reply); err != nil {
		c.logger.Error("Business service call failed", zap.String("method", method), zap.String("businessID", businessID), zap.Error(err))
		return fmt.Errorf("business service %s: %w", method, err)
	}
	c.logger.Debug("Business service call succeeded", zap.String("method", method), zap.String("businessID", businessID))
	return nil
}

// Close releases the underlying connection.
func (c *BusinessGRPCClient) Close() error {
	return c.conn.Close()
}
