package notifyuser

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"account-onboarding/internal/common/logger"
	"account-onboarding/internal/models"
)

// ===== Mocks =====

type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

// ===== Test Helper Functions =====

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() *Config {
	return &Config{
		ChannelPrefix: "onboarding:connection:",
		EmailEnabled:  true,
		FromEmail:     "no-reply@example.com",
	}
}

func successNotification() models.UserNotification {
	return models.UserNotification{
		RequestID:          "req-1",
		CallerConnectionID: "conn-42",
		Email:              "jean.dupont@example.com",
		Firstname:          "JEAN",
		Status:             string(models.StatusSucceeded),
		Message:            "Registration successful, your account will be created within 24 hours.",
		UserID:             "user-1",
	}
}

// ===== Tests =====

func TestHandler_NotifyUser_PushesToConnection(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "onboarding:connection:conn-42")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	handler := NewHandler(&Config{ChannelPrefix: "onboarding:connection:"}, rdb, nil, logger.NewTestLogger(t))
	require.NoError(t, handler.NotifyUser(ctx, successNotification()))

	select {
	case msg := <-sub.Channel():
		var got models.UserNotification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "req-1", got.RequestID)
		assert.Equal(t, "SUCCEEDED", got.Status)
		assert.Equal(t, "user-1", got.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestHandler_NotifyUser_SendsEmailOnSuccess(t *testing.T) {
	_, rdb := setupRedis(t)
	client := new(MockSES)
	var captured *ses.SendEmailInput
	client.On("SendEmail", mock.Anything, mock.AnythingOfType("*ses.SendEmailInput")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*ses.SendEmailInput) }).
		Return(&ses.SendEmailOutput{MessageId: aws.String("m-1")}, nil)

	handler := NewHandler(testConfig(), rdb, client, logger.NewTestLogger(t))
	require.NoError(t, handler.NotifyUser(context.Background(), successNotification()))

	require.NotNil(t, captured)
	assert.Equal(t, "no-reply@example.com", aws.ToString(captured.Source))
	assert.Equal(t, []string{"jean.dupont@example.com"}, captured.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(captured.Message.Body.Text.Data), "Registration successful")
	client.AssertExpectations(t)
}

func TestHandler_NotifyUser_FailureIsNotMailed(t *testing.T) {
	_, rdb := setupRedis(t)
	client := new(MockSES)

	n := successNotification()
	n.Status = string(models.StatusFailed)
	n.Message = "Error during the subscription: Provided birthdate does not match with ID card birthdate"

	handler := NewHandler(testConfig(), rdb, client, logger.NewTestLogger(t))
	require.NoError(t, handler.NotifyUser(context.Background(), n))

	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestHandler_NotifyUser_NoConnectionNoEmail(t *testing.T) {
	_, rdb := setupRedis(t)
	handler := NewHandler(&Config{ChannelPrefix: "p:"}, rdb, nil, logger.NewNoOpLogger())

	n := successNotification()
	n.CallerConnectionID = ""
	assert.NoError(t, handler.NotifyUser(context.Background(), n))
}

func TestHandler_NotifyUser_RedisDownIsTransient(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	handler := NewHandler(&Config{ChannelPrefix: "p:"}, rdb, nil, logger.NewNoOpLogger())
	err := handler.NotifyUser(context.Background(), successNotification())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestHandler_NotifyUser_SESError(t *testing.T) {
	_, rdb := setupRedis(t)
	client := new(MockSES)
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("MessageRejected"))

	n := successNotification()
	n.CallerConnectionID = ""

	handler := NewHandler(testConfig(), rdb, client, logger.NewNoOpLogger())
	err := handler.NotifyUser(context.Background(), n)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ses send email")
}
