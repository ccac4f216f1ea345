package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"dh-form/domain"
	"dh-form/i18n"
	"dh-form/repository"
)

type FormOptions struct {
	SessionTTL     time.Duration
	MaxRows        int
	NoticeDuration time.Duration
}

func DefaultFormOptions() FormOptions {
	return FormOptions{
		SessionTTL:     DefaultSessionTTL,
		MaxRows:        DefaultMaxRows,
		NoticeDuration: DefaultNoticeDuration,
	}
}

// FormService keeps one FormState per session and drives it through the
// list operations and the remote calculation.
type FormService struct {
	sessions   repository.CacheRepository
	history    repository.HistoryRepository
	calculator Calculator
	ids        domain.RowIDGenerator
	opts       FormOptions
	logger     *slog.Logger
	now        func() time.Time
}

// NewFormService creates a FormService. A nil logger uses slog.Default.
func NewFormService(
	sessions repository.CacheRepository,
	history repository.HistoryRepository,
	calculator Calculator,
	ids domain.RowIDGenerator,
	opts FormOptions,
	logger *slog.Logger,
) *FormService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FormService{
		sessions:   sessions,
		history:    history,
		calculator: calculator,
		ids:        ids,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *FormService) load(ctx context.Context, sid string) (domain.FormState, bool, error) {
	raw, ok, err := s.sessions.Get(ctx, sessionKeyPrefix+sid)
	if err != nil {
		return domain.FormState{}, false, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return domain.NewFormState(s.ids.NewRowID()), true, nil
	}

	var state domain.FormState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn("discarding unreadable session", "session", sid, "error", err)
		return domain.NewFormState(s.ids.NewRowID()), true, nil
	}
	return state, false, nil
}

func (s *FormService) save(ctx context.Context, sid string, state domain.FormState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.sessions.Set(ctx, sessionKeyPrefix+sid, string(raw), s.opts.SessionTTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// update loads the session, applies fn and stores the result.
func (s *FormService) update(
	ctx context.Context,
	sid string,
	fn func(domain.FormState) domain.FormState,
) (domain.FormState, error) {
	state, _, err := s.load(ctx, sid)
	if err != nil {
		return domain.FormState{}, err
	}
	state = fn(state)
	if err := s.save(ctx, sid, state); err != nil {
		return domain.FormState{}, err
	}
	return state, nil
}

// Current returns the session state without consuming its notice.
func (s *FormService) Current(ctx context.Context, sid string) (domain.FormState, error) {
	state, _, err := s.load(ctx, sid)
	return state, err
}

// View returns the state to render and takes its pending notice, so each
// notice is shown exactly once.
func (s *FormService) View(ctx context.Context, sid string) (domain.FormState, *domain.Notice, error) {
	state, fresh, err := s.load(ctx, sid)
	if err != nil {
		return domain.FormState{}, nil, err
	}

	state, notice := state.TakeNotice()
	if fresh || notice != nil {
		if err := s.save(ctx, sid, state); err != nil {
			return domain.FormState{}, nil, err
		}
	}
	return state, notice, nil
}

func (s *FormService) AddRow(ctx context.Context, sid string, values url.Values) (domain.FormState, error) {
	return s.update(ctx, sid, func(st domain.FormState) domain.FormState {
		st = st.WithRows(Capture(st.Rows, values))
		return st.AddRow(s.ids.NewRowID(), s.opts.MaxRows)
	})
}

func (s *FormService) RemoveRow(
	ctx context.Context,
	sid string,
	id domain.RowID,
	values url.Values,
) (domain.FormState, error) {
	return s.update(ctx, sid, func(st domain.FormState) domain.FormState {
		st = st.WithRows(Capture(st.Rows, values))
		return st.RemoveRow(id)
	})
}

func (s *FormService) Reset(ctx context.Context, sid string) (domain.FormState, error) {
	return s.update(ctx, sid, func(st domain.FormState) domain.FormState {
		return st.Reset(s.ids.NewRowID())
	})
}

// Submit binds the posted values and runs one calculation. A
// *ValidationError means nothing was sent; ErrComputeFailed means the
// result was left as it was and a failure notice is pending.
func (s *FormService) Submit(ctx context.Context, sid string, values url.Values) (domain.FormState, error) {
	state, _, err := s.load(ctx, sid)
	if err != nil {
		return domain.FormState{}, err
	}
	state = state.WithRows(Capture(state.Rows, values))

	inputs, bindErr := Bind(state.Rows, values)
	if bindErr != nil {
		var verr *ValidationError
		errors.As(bindErr, &verr)
		state = state.WithNotice(domain.Notice{
			Kind:     domain.NoticeValidation,
			Title:    i18n.KeyValidationTitle,
			Message:  i18n.KeyValidationDetail,
			Fields:   verr.Missing,
			Duration: s.opts.NoticeDuration,
		})
		if err := s.save(ctx, sid, state); err != nil {
			return domain.FormState{}, err
		}
		return state, bindErr
	}

	// Keep typed values even if the call below is slow or fails.
	if err := s.save(ctx, sid, state); err != nil {
		return domain.FormState{}, err
	}

	// A submit runs to completion once issued: a browser abandoning the
	// request must not cancel the calculation or lose its outcome.
	ctx = context.WithoutCancel(ctx)

	result, calcErr := s.calculator.Calculate(ctx, inputs)
	if calcErr != nil {
		s.logger.Info("calculation failed", "session", sid, "rows", len(inputs), "error", calcErr)
		state, err := s.update(ctx, sid, func(st domain.FormState) domain.FormState {
			return st.WithNotice(s.failureNotice())
		})
		if err != nil {
			return domain.FormState{}, err
		}
		return state, calcErr
	}

	s.record(ctx, inputs, result)

	return s.update(ctx, sid, func(st domain.FormState) domain.FormState {
		return st.ApplyResult(result)
	})
}

// Throttled leaves a notice that the submit was refused before reaching
// the calculation service. Typed values are kept.
func (s *FormService) Throttled(ctx context.Context, sid string, values url.Values) (domain.FormState, error) {
	return s.update(ctx, sid, func(st domain.FormState) domain.FormState {
		st = st.WithRows(Capture(st.Rows, values))
		return st.WithNotice(domain.Notice{
			Kind:     domain.NoticeDanger,
			Title:    i18n.KeyRateLimitTitle,
			Message:  i18n.KeyRateLimitMessage,
			Duration: s.opts.NoticeDuration,
		})
	})
}

// Calculate runs a calculation outside any session.
func (s *FormService) Calculate(
	ctx context.Context,
	inputs []domain.ParameterInput,
) (domain.CalculationResult, error) {
	if err := ValidateInputs(inputs); err != nil {
		return domain.CalculationResult{}, err
	}
	result, err := s.calculator.Calculate(ctx, inputs)
	if err != nil {
		return domain.CalculationResult{}, err
	}
	s.record(ctx, inputs, result)
	return result, nil
}

// History returns up to limit past calculations, newest first.
func (s *FormService) History(ctx context.Context, limit int) ([]domain.CalculationRecord, error) {
	return s.history.Recent(ctx, limit)
}

func (s *FormService) failureNotice() domain.Notice {
	return domain.Notice{
		Kind:     domain.NoticeDanger,
		Title:    i18n.KeyErrorTitle,
		Message:  i18n.KeyErrorMessage,
		Duration: s.opts.NoticeDuration,
	}
}

// record saves a calculation to history. Failures are only logged.
func (s *FormService) record(
	ctx context.Context,
	inputs []domain.ParameterInput,
	result domain.CalculationResult,
) {
	rec := domain.CalculationRecord{
		ID:        uuid.NewString(),
		Rows:      inputs,
		Result:    result.Result,
		Coord:     result.Coord,
		CreatedAt: s.now().UTC(),
	}
	if err := s.history.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to save calculation", "id", rec.ID, "error", err)
	}
}
