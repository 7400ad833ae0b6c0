package generate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilweb04/Veo-Minacast/internal/veo"
)

// fakeClient is a scripted veo.Client for workflow tests.
type fakeClient struct {
	mu sync.Mutex

	submitCalls  int
	pollCalls    int
	pendingPolls int
	terminal     veo.Operation
	submitErr    error
	pollErr      error

	downloadOrder []string
	downloadData  map[string][]byte
	downloadErrs  map[string]error
}

func (f *fakeClient) Submit(_ context.Context, params veo.GenerateParams) (veo.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if f.submitErr != nil {
		return veo.Operation{}, f.submitErr
	}
	if f.pendingPolls == 0 {
		return f.terminal, nil
	}
	return veo.Operation{Name: "op-test", Done: false}, nil
}

func (f *fakeClient) Poll(_ context.Context, name string) (veo.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.pollErr != nil {
		return veo.Operation{}, f.pollErr
	}
	if f.pollCalls < f.pendingPolls {
		return veo.Operation{Name: name, Done: false}, nil
	}
	return f.terminal, nil
}

func (f *fakeClient) Download(_ context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.downloadErrs[uri]; ok {
		return nil, err
	}
	f.downloadOrder = append(f.downloadOrder, uri)
	if data, ok := f.downloadData[uri]; ok {
		return data, nil
	}
	return []byte(uri), nil
}

func (f *fakeClient) stats() (submits, polls int, downloads []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.pollCalls, append([]string(nil), f.downloadOrder...)
}

func newTestService(client veo.Client, opts ...ServiceOption) *Service {
	base := []ServiceOption{
		WithPollInterval(2 * time.Millisecond),
		WithProgressInterval(time.Millisecond),
	}
	return NewService(client, "veo-2.0-generate-001", nil, append(base, opts...)...)
}

func TestGenerate_BlankPrompt_NothingSubmitted(t *testing.T) {
	for _, prompt := range []string{"", "   ", "\t\n "} {
		client := &fakeClient{}
		svc := newTestService(client)

		err := svc.Generate(context.Background(), Request{Prompt: prompt}, nil, nil)
		require.ErrorIs(t, err, ErrPromptRequired)

		submits, polls, downloads := client.stats()
		assert.Zero(t, submits, "blank prompt must not reach the provider")
		assert.Zero(t, polls)
		assert.Empty(t, downloads)
	}
}

func TestGenerate_PendingThenComplete_DeliversInOrder(t *testing.T) {
	client := &fakeClient{
		pendingPolls: 4,
		terminal: veo.Operation{
			Name: "op-test",
			Done: true,
			Videos: []veo.Video{
				{URI: "https://files.example.com/v/1"},
				{URI: "https://files.example.com/v/2"},
			},
		},
		downloadData: map[string][]byte{
			"https://files.example.com/v/1": []byte("first"),
			"https://files.example.com/v/2": []byte("second"),
		},
	}
	svc := newTestService(client)

	type delivery struct {
		index int
		data  string
	}
	var delivered []delivery
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise", VideoCount: 2}, nil,
		func(index int, data []byte) error {
			delivered = append(delivered, delivery{index, string(data)})
			return nil
		})
	require.NoError(t, err)

	require.Len(t, delivered, 2)
	assert.Equal(t, delivery{0, "first"}, delivered[0])
	assert.Equal(t, delivery{1, "second"}, delivered[1])

	_, polls, downloads := client.stats()
	assert.Equal(t, 4, polls)
	assert.Equal(t, []string{
		"https://files.example.com/v/1",
		"https://files.example.com/v/2",
	}, downloads)
}

func TestGenerate_ProgressReportedOnlyWhileInFlight(t *testing.T) {
	client := &fakeClient{
		pendingPolls: 10,
		terminal: veo.Operation{
			Name:   "op-test",
			Done:   true,
			Videos: []veo.Video{{URI: "https://files.example.com/v/1"}},
		},
	}
	svc := newTestService(client,
		WithPollInterval(5*time.Millisecond),
		WithProgressInterval(time.Millisecond),
	)

	var progress atomic.Int64
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"},
		func(string) { progress.Add(1) }, nil)
	require.NoError(t, err)

	// ~50ms of polling at a 1ms progress interval: the reporter must have
	// fired during the wait.
	atReturn := progress.Load()
	assert.Positive(t, atReturn)

	// And never again after Generate returned.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, atReturn, progress.Load(), "no progress callbacks after the workflow resolves")
}

func TestGenerate_EmptyResult(t *testing.T) {
	client := &fakeClient{
		pendingPolls: 2,
		terminal:     veo.Operation{Name: "op-test", Done: true},
	}
	svc := newTestService(client)

	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"}, nil, nil)
	require.ErrorIs(t, err, ErrEmptyResult)

	_, _, downloads := client.stats()
	assert.Empty(t, downloads, "empty completion must not trigger downloads")
}

func TestGenerate_ProviderFailureStopsReporter(t *testing.T) {
	client := &fakeClient{
		pendingPolls: 3,
		terminal: veo.Operation{
			Name: "op-test",
			Done: true,
			Err:  &veo.APIError{Code: 429, Message: "rate limited"},
		},
	}
	svc := newTestService(client)

	var progress atomic.Int64
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"},
		func(string) { progress.Add(1) }, nil)

	var apiErr *veo.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)

	atReturn := progress.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, atReturn, progress.Load(), "reporter must stop on the failure path")
}

func TestGenerate_PollTransportErrorStopsReporter(t *testing.T) {
	transportErr := errors.New("connection reset")
	client := &fakeClient{
		pendingPolls: 5,
		pollErr:      transportErr,
	}
	svc := newTestService(client)

	var progress atomic.Int64
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"},
		func(string) { progress.Add(1) }, nil)
	require.ErrorIs(t, err, transportErr)

	atReturn := progress.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, atReturn, progress.Load(), "reporter must stop when polling raises")
}

func TestGenerate_SubmitError(t *testing.T) {
	submitErr := &veo.APIError{Code: 400, Message: "invalid API key"}
	client := &fakeClient{submitErr: submitErr}
	svc := newTestService(client)

	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"}, nil, nil)

	var apiErr *veo.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Code)
}

func TestGenerate_SecondDownloadFails(t *testing.T) {
	dlErr := &veo.DownloadError{StatusCode: 403, Body: "access denied"}
	client := &fakeClient{
		terminal: veo.Operation{
			Name: "op-test",
			Done: true,
			Videos: []veo.Video{
				{URI: "https://files.example.com/v/1"},
				{URI: "https://files.example.com/v/2"},
				{URI: "https://files.example.com/v/3"},
			},
		},
		downloadErrs: map[string]error{
			"https://files.example.com/v/2": dlErr,
		},
	}
	svc := newTestService(client)

	var delivered []int
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise", VideoCount: 3}, nil,
		func(index int, _ []byte) error {
			delivered = append(delivered, index)
			return nil
		})

	var gotErr *veo.DownloadError
	require.ErrorAs(t, err, &gotErr)
	assert.Contains(t, err.Error(), "video 2")

	// The first result was already handed off; the third is never attempted.
	assert.Equal(t, []int{0}, delivered)
	_, _, downloads := client.stats()
	assert.Equal(t, []string{"https://files.example.com/v/1"}, downloads)
}

func TestGenerate_DeliveryErrorAbortsRemaining(t *testing.T) {
	client := &fakeClient{
		terminal: veo.Operation{
			Name: "op-test",
			Done: true,
			Videos: []veo.Video{
				{URI: "https://files.example.com/v/1"},
				{URI: "https://files.example.com/v/2"},
			},
		},
	}
	svc := newTestService(client)

	deliveryErr := errors.New("disk full")
	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"}, nil,
		func(int, []byte) error { return deliveryErr })
	require.ErrorIs(t, err, deliveryErr)

	_, _, downloads := client.stats()
	assert.Len(t, downloads, 1, "second download must not start after a delivery failure")
}

func TestGenerate_ContextCancelledDuringWait(t *testing.T) {
	client := &fakeClient{pendingPolls: 1 << 30} // never terminal
	svc := newTestService(client, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()

	var progress atomic.Int64
	err := svc.Generate(ctx, Request{Prompt: "a sunrise"},
		func(string) { progress.Add(1) }, nil)
	require.ErrorIs(t, err, context.Canceled)

	atReturn := progress.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, atReturn, progress.Load(), "reporter must stop on cancellation")
}

func TestGenerate_DefaultsVideoCountToOne(t *testing.T) {
	var gotCount int
	client := &countingClient{onSubmit: func(params veo.GenerateParams) { gotCount = params.SampleCount }}
	svc := newTestService(client)

	err := svc.Generate(context.Background(), Request{Prompt: "a sunrise"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, gotCount)
}

// countingClient completes immediately and records submit parameters.
type countingClient struct {
	onSubmit func(veo.GenerateParams)
}

func (c *countingClient) Submit(_ context.Context, params veo.GenerateParams) (veo.Operation, error) {
	if c.onSubmit != nil {
		c.onSubmit(params)
	}
	return veo.Operation{
		Name:   "op-test",
		Done:   true,
		Videos: []veo.Video{{URI: "https://files.example.com/v/1"}},
	}, nil
}

func (c *countingClient) Poll(_ context.Context, name string) (veo.Operation, error) {
	return veo.Operation{Name: name, Done: true}, nil
}

func (c *countingClient) Download(_ context.Context, uri string) ([]byte, error) {
	return []byte(uri), nil
}
