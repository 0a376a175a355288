package services

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keen-VPN/vpn-backend-service/internal/lib/smtp"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	return m.Called().Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func noticeBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(models.ExpiringNotice{
		UserUID:   "user-uid-1",
		Email:     "test@example.com",
		Plan:      "monthly",
		PeriodEnd: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return body
}

func TestSenderService_SendExpiringSubscriptionNotice(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockSMTPWriter)

	transport.On("GetSMTPUser").Return("noreply@keenvpn.example")
	transport.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@keenvpn.example").Return(nil).Once()
	client.On("Rcpt", "test@example.com").Return(nil).Once()
	client.On("Data").Return(writer, nil).Once()
	writer.On("Write", mock.MatchedBy(func(p []byte) bool {
		msg := string(p)
		return strings.Contains(msg, "To: test@example.com") &&
			strings.Contains(msg, "monthly") &&
			strings.Contains(msg, "01.07.2025")
	})).Return(1, nil).Once()
	writer.On("Close").Return(nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()

	svc := NewSenderService(transport, newNoopLogger())

	err := svc.SendExpiringSubscriptionNotice(noticeBody(t))
	require.NoError(t, err)

	transport.AssertExpectations(t)
	client.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestSenderService_InvalidMessageBody(t *testing.T) {
	svc := NewSenderService(new(MockTransport), newNoopLogger())

	err := svc.SendExpiringSubscriptionNotice([]byte("not json"))
	assert.Error(t, err)
}

func TestSenderService_ConnectError(t *testing.T) {
	transport := new(MockTransport)
	transport.On("GetSMTPUser").Return("noreply@keenvpn.example")
	transport.On("Connect").Return(nil, errors.New("dial error")).Once()

	svc := NewSenderService(transport, newNoopLogger())

	err := svc.SendExpiringSubscriptionNotice(noticeBody(t))
	assert.Error(t, err)

	transport.AssertExpectations(t)
}

func TestSenderService_RcptError(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)

	transport.On("GetSMTPUser").Return("noreply@keenvpn.example")
	transport.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@keenvpn.example").Return(nil).Once()
	client.On("Rcpt", "test@example.com").Return(errors.New("mailbox unavailable")).Once()
	client.On("Close").Return(nil).Once()

	svc := NewSenderService(transport, newNoopLogger())

	err := svc.SendExpiringSubscriptionNotice(noticeBody(t))
	assert.Error(t, err)

	client.AssertExpectations(t)
}
