package ordering

import (
	"context"
	"errors"
	"strings"

	"voiceorder/internal/patterns"
	"voiceorder/internal/session"
)

// Handle routes free text to the operation the session's step expects:
// the first order, extra items or a packaging answer, the phone question,
// then the number itself.
func (s *Service) Handle(ctx context.Context, id, text string) (*Result, error) {
	cur, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch cur.Step {
	case session.StepStarted:
		return s.SubmitOrder(ctx, id, text)
	case session.StepPackaging:
		return s.handlePackaging(ctx, cur, text)
	case session.StepPhoneChoice:
		return s.AnswerPhoneChoice(ctx, id, text)
	case session.StepPhoneInput:
		return s.SubmitPhone(ctx, id, text)
	default:
		return &Result{Session: cur, Message: "주문이 이미 완료되었습니다."}, nil
	}
}

func (s *Service) handlePackaging(ctx context.Context, cur *session.Session, text string) (*Result, error) {
	if cur.Data.PackagingType != "" &&
		s.deps.Parser.Snapshot().ParseConfirmation(text) == patterns.AnswerYes {
		return s.SelectPackaging(ctx, cur.ID, "")
	}
	if _, _, ok := s.deps.Packaging.StripKeywords(text); ok {
		return s.SelectPackaging(ctx, cur.ID, text)
	}

	res, err := s.AddItems(ctx, cur.ID, text)
	var se *SubmitError
	if err == nil || !errors.As(err, &se) {
		return res, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, err
	}
	return s.SelectPackaging(ctx, cur.ID, text)
}
