package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_GetConversationHistory(t *testing.T) {
	s := NewSession("7f8b0c1a-5b0e-4a43-9a3e-2f3b43999001")

	s.AddEvent(NewUserMessageEvent("run-1", "what is the weather in Montevideo?"))

	partial := true
	chunk := NewMessageEvent("run-1", "supervisor", "It is")
	chunk.Partial = &partial
	s.AddEvent(chunk)

	s.AddEvent(NewFunctionResponseEvent("run-1", "supervisor", FunctionResponse{
		ID: "call-1", Name: "ask_weather_agent", Content: "18C, cloudy",
	}))
	s.AddEvent(NewMessageEvent("run-1", "supervisor", "It is 18C and cloudy."))
	s.AddEvent(NewErrorEvent("run-2", "supervisor", "Something went wrong. Please try again."))

	history := s.GetConversationHistory()
	assert.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "It is 18C and cloudy.", history[1].Text())
}

func TestSession_CloneIsolation(t *testing.T) {
	s := NewSession("7f8b0c1a-5b0e-4a43-9a3e-2f3b43999002")
	s.AddEvent(NewUserMessageEvent("run-1", "hi"))

	clone := s.Clone()
	clone.Events = append(clone.Events, NewMessageEvent("run-1", "supervisor", "hello"))

	assert.Equal(t, 1, s.EventCount())
	assert.Len(t, clone.Events, 2)
	assert.Equal(t, s.ID, clone.ID)
}

func TestSession_ConcurrentAddEvent(t *testing.T) {
	s := NewSession("7f8b0c1a-5b0e-4a43-9a3e-2f3b43999003")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddEvent(NewUserMessageEvent("run-1", "msg"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.EventCount())
}

func TestStepLimiter(t *testing.T) {
	sl := NewStepLimiter(2)
	assert.NoError(t, sl.Increment())
	assert.NoError(t, sl.Increment())
	assert.Error(t, sl.Increment())
	assert.Equal(t, 3, sl.Count())

	unlimited := NewStepLimiter(0)
	for i := 0; i < 100; i++ {
		assert.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID("7f8b0c1a-5b0e-4a43-9a3e-2f3b43999001"))

	err := ValidateSessionID("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidSessionID)

	assert.Error(t, ValidateSessionID(""))
}
