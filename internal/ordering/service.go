package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"voiceorder/internal/catalog"
	"voiceorder/internal/logging"
	"voiceorder/internal/parse"
	"voiceorder/internal/patterns"
	"voiceorder/internal/resolve"
	"voiceorder/internal/session"
	"voiceorder/internal/similarity"
)

// resolveWorkers bounds concurrent item resolutions within one utterance.
const resolveWorkers = 4

// Options tunes the conversation flow.
type Options struct {
	// DefaultQuantityWhenMissing orders the locale's default_quantity of an
	// item named without a quantity instead of re-prompting for it.
	DefaultQuantityWhenMissing bool

	// PackagingFallback is used when a packaging answer cannot be resolved.
	// Empty keeps the answer unresolved and re-prompts.
	PackagingFallback catalog.PackagingType

	Now func() time.Time
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Sessions  *session.Manager
	Parser    *parse.Parser
	Menu      *resolve.MenuResolver
	Packaging *resolve.PackagingResolver
	Scorer    *similarity.Scorer // optional; warms the embedding memo per utterance
	Ledger    Ledger
}

// Service runs the ordering conversation on top of the session manager.
type Service struct {
	deps Deps
	opts Options
}

// NewService wires a Service.
func NewService(deps Deps, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{deps: deps, opts: opts}
}

// Result is the outcome of one conversational turn.
type Result struct {
	Session   *session.Session        `json:"session,omitempty"`
	Message   string                  `json:"message"`
	Lines     []session.OrderLine     `json:"lines,omitempty"` // resolved from this turn's text
	Failures  []ItemFailure           `json:"failures,omitempty"`
	Packaging *resolve.PackagingMatch `json:"packaging,omitempty"`
	Changes   *ChangeSet              `json:"changes,omitempty"`
}

// ItemRequest is one structured line for ReplaceOrders.
type ItemRequest struct {
	MenuText string `json:"menu_item"`
	Quantity int    `json:"quantity"`
}

// Start opens a new session.
func (s *Service) Start(ctx context.Context) (*session.Session, error) {
	return s.deps.Sessions.Create(ctx)
}

// Status returns the current session.
func (s *Service) Status(ctx context.Context, id string) (*session.Session, error) {
	return s.deps.Sessions.Get(ctx, id)
}

// ResolveText turns free text into order lines without touching a session.
// Spans that fail are reported individually; the error is non-nil only when
// nothing resolved.
func (s *Service) ResolveText(ctx context.Context, text string) ([]session.OrderLine, []ItemFailure, error) {
	timer := logging.StartTimer(logging.CategoryOrdering, "ResolveText")
	defer timer.StopWithThreshold(500 * time.Millisecond)

	spans := s.deps.Parser.Split(text)
	if len(spans) == 0 {
		return nil, nil, &SubmitError{}
	}

	defaultQty := s.deps.Parser.Snapshot().Config.DefaultQuantity
	items := make([]parse.Item, len(spans))
	var menuTexts []string
	for i, span := range spans {
		it := s.deps.Parser.ParseItem(span)
		if it.Failure == parse.FailureQuantityMissing && s.opts.DefaultQuantityWhenMissing {
			it.Quantity = defaultQty
			it.Failure = parse.FailureNone
		}
		items[i] = it
		if it.OK() {
			menuTexts = append(menuTexts, it.MenuText)
		}
	}
	if s.deps.Scorer != nil && len(menuTexts) > 1 {
		if err := s.deps.Scorer.Warm(ctx, menuTexts); err != nil {
			logging.OrderingWarn("warm embeddings: %v", err)
		}
	}

	matches := make([]resolve.MenuMatch, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i, it := range items {
		if !it.OK() {
			continue
		}
		g.Go(func() error {
			matches[i] = s.deps.Menu.Resolve(gctx, it.MenuText)
			return nil
		})
	}
	_ = g.Wait()

	var lines []session.OrderLine
	var failures []ItemFailure
	for i, it := range items {
		if !it.OK() {
			failures = append(failures, ItemFailure{
				Span: it.Span, MenuText: it.MenuText, Kind: it.Failure,
				Reason: it.Failure.Prompt(), Err: ErrParsingFailed,
			})
			continue
		}
		m := matches[i]
		switch m.Outcome {
		case resolve.Resolved:
			lines = Merge(lines, []session.OrderLine{lineFor(m.Entry, it)})
		case resolve.BackendError:
			failures = append(failures, ItemFailure{
				Span: it.Span, MenuText: it.MenuText,
				Reason: "메뉴를 검색할 수 없습니다. 잠시 후 다시 시도해주세요.",
				Err:    backendFailure(m.Cause),
			})
		default:
			failures = append(failures, ItemFailure{
				Span: it.Span, MenuText: it.MenuText,
				Reason: fmt.Sprintf("'%s' 메뉴를 찾을 수 없습니다.", it.MenuText),
				Err:    ErrNotFound,
			})
		}
	}

	logging.OrderingDebug("resolved %d/%d spans of %q", len(spans)-len(failures), len(spans), text)
	if len(lines) == 0 {
		return nil, failures, &SubmitError{Failures: failures}
	}
	return lines, failures, nil
}

func lineFor(e catalog.Entry, it parse.Item) session.OrderLine {
	return session.OrderLine{
		CatalogID:    e.ID,
		MenuName:     e.Name,
		UnitPrice:    e.Price,
		Quantity:     it.Quantity,
		Temperature:  e.Temperature,
		OriginalText: it.Span,
		Popular:      e.Popular,
	}
}

// SubmitOrder takes the first utterance of a session. Packaging words in the
// text are captured on the session so the packaging step can be confirmed
// without asking again.
func (s *Service) SubmitOrder(ctx context.Context, id, text string) (*Result, error) {
	if _, err := s.deps.Sessions.Get(ctx, id, session.StepStarted); err != nil {
		return nil, err
	}

	cleaned, pkg, captured := s.deps.Packaging.StripKeywords(text)
	lines, failures, err := s.ResolveText(ctx, cleaned)
	if err != nil {
		return &Result{Failures: failures}, err
	}

	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepStarted}, func(sess *session.Session) error {
		setOrders(&sess.Data, Merge(nil, lines))
		if captured {
			sess.Data.PackagingType = pkg
		}
		sess.Step = session.StepPackaging
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Session: sess, Lines: lines, Failures: failures}
	res.Message = "다음 주문이 접수되었습니다: " + Summary(sess.Data.Orders)
	if captured {
		res.Packaging = &resolve.PackagingMatch{
			Outcome: resolve.Resolved, Type: pkg, Method: resolve.MethodKeyword, Score: 1,
		}
		res.Message += fmt.Sprintf("\n포장 방식: %s", pkg.Label())
	}
	res.Message += failureSuffix(failures)
	logging.Ordering("session %s: order submitted (%d lines, %d원)", id, len(sess.Data.Orders), sess.Data.TotalPrice)
	return res, nil
}

// AddItems merges more items into the order.
func (s *Service) AddItems(ctx context.Context, id, text string) (*Result, error) {
	if _, err := s.deps.Sessions.Get(ctx, id, session.StepPackaging); err != nil {
		return nil, err
	}
	lines, failures, err := s.ResolveText(ctx, text)
	if err != nil {
		return &Result{Failures: failures}, err
	}
	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPackaging}, func(sess *session.Session) error {
		setOrders(&sess.Data, Merge(sess.Data.Orders, lines))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Session:  sess,
		Lines:    lines,
		Failures: failures,
		Message:  "다음 메뉴가 추가되었습니다: " + Summary(lines) + failureSuffix(failures),
	}, nil
}

// RemoveItem drops every line of the named item. The last item of an order
// cannot be removed.
func (s *Service) RemoveItem(ctx context.Context, id, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPackaging}, func(sess *session.Session) error {
		kept := make([]session.OrderLine, 0, len(sess.Data.Orders))
		for _, l := range sess.Data.Orders {
			if l.MenuName != name && l.DisplayName() != name {
				kept = append(kept, l)
			}
		}
		switch {
		case len(kept) == len(sess.Data.Orders):
			return fmt.Errorf("%w: '%s' 메뉴를 찾을 수 없습니다.", ErrNotFound, name)
		case len(kept) == 0:
			return fmt.Errorf("%w: 모든 주문을 삭제할 수 없습니다. 최소 1개 이상의 주문이 필요합니다.", ErrParsingFailed)
		}
		setOrders(&sess.Data, kept)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Message: fmt.Sprintf("'%s'이(가) 주문에서 삭제되었습니다.", name)}, nil
}

// ReplaceOrders sets the whole order from structured lines. Every line must
// resolve; nothing is written when the result equals the current order.
func (s *Service) ReplaceOrders(ctx context.Context, id string, items []ItemRequest) (*Result, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: 최소 1개 이상의 주문이 필요합니다.", ErrParsingFailed)
	}
	cur, err := s.deps.Sessions.Get(ctx, id, session.StepPackaging)
	if err != nil {
		return nil, err
	}

	var lines []session.OrderLine
	var failures []ItemFailure
	for _, req := range items {
		text := strings.TrimSpace(req.MenuText)
		if req.Quantity < 1 {
			failures = append(failures, ItemFailure{Span: text, MenuText: text,
				Reason: "수량은 1 이상이어야 합니다.", Err: ErrParsingFailed})
			continue
		}
		m := s.deps.Menu.Resolve(ctx, text)
		switch m.Outcome {
		case resolve.Resolved:
			lines = Merge(lines, []session.OrderLine{lineFor(m.Entry, parse.Item{Span: text, Quantity: req.Quantity})})
		case resolve.BackendError:
			return nil, backendFailure(m.Cause)
		default:
			failures = append(failures, ItemFailure{Span: text, MenuText: text,
				Reason: fmt.Sprintf("'%s' 메뉴를 찾을 수 없습니다.", text), Err: ErrNotFound})
		}
	}
	if len(failures) > 0 {
		return &Result{Failures: failures}, &SubmitError{Failures: failures}
	}

	changes := Diff(cur.Data.Orders, lines)
	if !changes.HasChanges() {
		return &Result{Session: cur, Changes: &changes, Message: changes.Message()}, nil
	}
	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPackaging}, func(sess *session.Session) error {
		setOrders(&sess.Data, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Lines: lines, Changes: &changes, Message: changes.Message()}, nil
}

// UpdateTemperature switches a line to another variant of the same item,
// repricing it from the catalog.
func (s *Service) UpdateTemperature(ctx context.Context, id, name string, temp catalog.Temperature) (*Result, error) {
	name = strings.TrimSpace(name)
	variant, ok, err := s.deps.Menu.Variant(ctx, name, temp)
	if err != nil {
		return nil, backendFailure(err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: '%s'은(는) %s 메뉴가 없습니다.", ErrNotFound, name, tempLabel(temp))
	}

	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPackaging}, func(sess *session.Session) error {
		found := false
		updated := make([]session.OrderLine, 0, len(sess.Data.Orders))
		for _, l := range sess.Data.Orders {
			if l.MenuName == name {
				found = true
				l.CatalogID = variant.ID
				l.Temperature = variant.Temperature
				l.UnitPrice = variant.Price
				l.Popular = variant.Popular
			}
			updated = append(updated, l)
		}
		if !found {
			return fmt.Errorf("%w: 주문에 '%s'이(가) 없습니다.", ErrNotFound, name)
		}
		setOrders(&sess.Data, Merge(nil, updated))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Message: fmt.Sprintf("'%s'을(를) %s(으)로 변경했습니다.", name, tempLabel(temp))}, nil
}

func tempLabel(t catalog.Temperature) string {
	if l := t.Label(); l != "" {
		return l
	}
	return string(t)
}

// SelectPackaging resolves the packaging answer and moves on to the phone
// question. Empty text confirms packaging captured with the order.
func (s *Service) SelectPackaging(ctx context.Context, id, text string) (*Result, error) {
	cur, err := s.deps.Sessions.Get(ctx, id, session.StepPackaging)
	if err != nil {
		return nil, err
	}

	var match resolve.PackagingMatch
	if strings.TrimSpace(text) == "" && cur.Data.PackagingType != "" {
		match = resolve.PackagingMatch{Outcome: resolve.Resolved, Type: cur.Data.PackagingType, Method: resolve.MethodKeyword, Score: 1}
	} else {
		match = s.deps.Packaging.Resolve(ctx, text)
	}

	switch match.Outcome {
	case resolve.BackendError:
		if s.opts.PackagingFallback == "" {
			return &Result{Packaging: &match}, backendFailure(match.Cause)
		}
		logging.OrderingWarn("session %s: packaging backend failed, using %s: %v", id, s.opts.PackagingFallback, match.Cause)
	case resolve.NotFound:
		if s.opts.PackagingFallback == "" {
			return &Result{Packaging: &match}, fmt.Errorf("%w: 포장 방식을 알 수 없습니다. 포장 또는 매장 중에서 말씀해주세요.", ErrNotFound)
		}
	}
	pkg := match.OrDefault(s.opts.PackagingFallback)

	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPackaging}, func(sess *session.Session) error {
		sess.Data.PackagingType = pkg
		sess.Step = session.StepPhoneChoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Session:   sess,
		Packaging: &match,
		Message:   fmt.Sprintf("%s(으)로 준비하겠습니다. 주문 알림을 받을 전화번호를 입력하시겠습니까?", pkg.Label()),
	}, nil
}

// AnswerPhoneChoice interprets a yes/no reply to the phone question.
func (s *Service) AnswerPhoneChoice(ctx context.Context, id, text string) (*Result, error) {
	switch s.deps.Parser.Snapshot().ParseConfirmation(text) {
	case patterns.AnswerYes:
		return s.ChoosePhone(ctx, id, true)
	case patterns.AnswerNo:
		return s.ChoosePhone(ctx, id, false)
	default:
		return nil, fmt.Errorf("%w: 전화번호 입력 여부를 '네' 또는 '아니요'로 말씀해주세요.", ErrParsingFailed)
	}
}

// ChoosePhone records whether the customer wants to leave a number.
// Declining finalizes the order.
func (s *Service) ChoosePhone(ctx context.Context, id string, wants bool) (*Result, error) {
	if !wants {
		return s.Finalize(ctx, id)
	}
	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPhoneChoice}, func(sess *session.Session) error {
		sess.Data.WantsPhone = true
		sess.Step = session.StepPhoneInput
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Message: "전화번호를 입력해주세요."}, nil
}

// SubmitPhone stores a validated number and finalizes the order.
func (s *Service) SubmitPhone(ctx context.Context, id, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: 전화번호를 입력해주세요.", ErrParsingFailed)
	}
	phone, err := NormalizePhone(raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPhoneInput}, func(sess *session.Session) error {
		sess.Data.PhoneNumber = phone
		return nil
	}); err != nil {
		return nil, err
	}
	return s.Finalize(ctx, id)
}

// Finalize writes the order to the ledger and completes the session.
func (s *Service) Finalize(ctx context.Context, id string) (*Result, error) {
	steps := []session.Step{session.StepPhoneChoice, session.StepPhoneInput}
	cur, err := s.deps.Sessions.Get(ctx, id, steps...)
	if err != nil {
		return nil, err
	}
	if len(cur.Data.Orders) == 0 {
		return nil, fmt.Errorf("%w: 주문할 메뉴가 없습니다.", ErrParsingFailed)
	}

	order := FinalizedOrder{
		SessionID:     cur.ID,
		Lines:         cur.Data.Orders,
		TotalPrice:    cur.Data.TotalPrice,
		PackagingType: cur.Data.PackagingType,
		PhoneNumber:   cur.Data.PhoneNumber,
		CreatedAt:     s.opts.Now(),
	}
	orderID, err := s.deps.Ledger.SaveOrder(ctx, order)
	if err != nil {
		logging.Get(logging.CategoryOrdering).Error("session %s: save order: %v", id, err)
		logging.AuditWithSession(id).OrderFailed(err)
		return nil, fmt.Errorf("save order: %w", err)
	}

	savedAt := order.CreatedAt
	sess, err := s.deps.Sessions.Update(ctx, id, steps, func(sess *session.Session) error {
		sess.Data.OrderID = orderID
		sess.Data.SavedAt = &savedAt
		sess.Step = session.StepCompleted
		return nil
	})
	if err != nil {
		logging.Get(logging.CategoryOrdering).Error("session %s: order %d saved but session not completed: %v", id, orderID, err)
		logging.AuditWithSession(id).OrderFailed(err)
		if errors.Is(err, session.ErrUpdateFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", session.ErrUpdateFailed, err)
	}

	logging.Ordering("session %s: order %d completed (%d원, %s)", id, orderID, sess.Data.TotalPrice, sess.Data.PackagingType)
	logging.AuditWithSession(id).OrderFinalized(orderID, sess.Data.TotalPrice, len(sess.Data.Orders), string(sess.Data.PackagingType))
	return &Result{
		Session: sess,
		Message: fmt.Sprintf("주문이 완료되었습니다! 주문번호 %d번, 총 %d원입니다.", orderID, sess.Data.TotalPrice),
	}, nil
}

// Retry returns to the packaging step, clearing packaging and phone choices.
func (s *Service) Retry(ctx context.Context, id string) (*Result, error) {
	sess, err := s.deps.Sessions.Update(ctx, id, []session.Step{session.StepPhoneChoice, session.StepPhoneInput}, func(sess *session.Session) error {
		sess.Data.PackagingType = ""
		sess.Data.WantsPhone = false
		sess.Data.PhoneNumber = ""
		sess.Step = session.StepPackaging
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Session: sess, Message: "포장 방식을 다시 선택해주세요. 현재 주문: " + Summary(sess.Data.Orders)}, nil
}

func failureSuffix(fs []ItemFailure) string {
	if len(fs) == 0 {
		return ""
	}
	return "\n다음 주문에 문제가 있습니다:\n" + failureList(fs)
}
