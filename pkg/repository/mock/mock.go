package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garnizeh/wellbeing/internal/apperr"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// Store is an in-memory UserRepo, QuestionRepo and ResponseRepo for tests.
// The *Err fields make the matching method fail.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	questions map[int64]models.Question
	responses map[int64]*models.Response
	items     map[int64][]models.ResponseItem

	CreateResponseErr error
	ApplyErr          error
	Applied           int
}

var _ repository.UserRepo = (*Store)(nil)
var _ repository.QuestionRepo = (*Store)(nil)
var _ repository.ResponseRepo = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:     map[int64]*models.User{},
		questions: map[int64]models.Question{},
		responses: map[int64]*models.Response{},
		items:     map[int64][]models.ResponseItem{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return 0, fmt.Errorf("UNIQUE constraint failed: users.email")
		}
	}
	cp := *u
	cp.ID = s.id()
	s.users[cp.ID] = &cp
	return cp.ID, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("question is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *q
	cp.ID = s.id()
	s.questions[cp.ID] = cp
	return cp.ID, nil
}

// DeleteQuestion removes a question; stored items keep their question id.
func (s *Store) DeleteQuestion(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, id)
}

func (s *Store) ListActiveQuestions(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Question{}
	for _, q := range s.questions {
		if q.Active {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []int64) (map[int64]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]models.Question, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (s *Store) CreateResponseWithItems(ctx context.Context, userID int64, answers []models.Answer) (*models.Response, error) {
	if s.CreateResponseErr != nil {
		return nil, s.CreateResponseErr
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers to store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &models.Response{ID: s.id(), UserID: userID}
	s.responses[r.ID] = r
	for _, a := range answers {
		s.items[r.ID] = append(s.items[r.ID], models.ResponseItem{ID: s.id(), ResponseID: r.ID, QuestionID: a.QuestionID, AnswerValue: a.Value})
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ApplyAnalysis(ctx context.Context, responseID, expectedVersion int64, result models.AnalysisResult) error {
	if s.ApplyErr != nil {
		return s.ApplyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.responses[responseID]
	if !ok {
		return apperr.NotFound("response %d", responseID)
	}
	if r.Version != expectedVersion {
		return fmt.Errorf("%w: response %d", apperr.ErrConcurrentModification, responseID)
	}
	recs := append([]string{}, result.Recommendations...)
	r.StressScore = &result.StressScore
	r.MotivationScore = &result.MotivationScore
	r.SatisfactionScore = &result.SatisfactionScore
	r.GlobalScore = &result.GlobalScore
	r.Risk = &result.RiskLevel
	r.Recommendations = recs
	r.Summary = &result.Summary
	r.Version++
	s.Applied++
	return nil
}

// BumpVersion simulates a concurrent writer.
func (s *Store) BumpVersion(responseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.responses[responseID]; ok {
		r.Version++
	}
}

func (s *Store) GetResponse(ctx context.Context, id int64) (*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.responses[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *Store) ListResponseItems(ctx context.Context, responseID int64) ([]models.ResponseItemDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ResponseItemDetail{}
	for _, it := range s.items[responseID] {
		d := models.ResponseItemDetail{ResponseItem: it}
		if q, ok := s.questions[it.QuestionID]; ok {
			q := q
			d.Question = &q
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListResponsesByUser(ctx context.Context, userID int64) ([]models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Response{}
	for _, r := range s.responses {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ListScoredResponses(ctx context.Context) ([]models.ResponseWithUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ResponseWithUser{}
	for _, r := range s.responses {
		if !r.Scored() {
			continue
		}
		rw := models.ResponseWithUser{Response: *r}
		if u, ok := s.users[r.UserID]; ok {
			rw.User = models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Department: u.Department}
		}
		out = append(out, rw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Stats is a canned StatisticsRepo that records the filters it was queried with.
type Stats struct {
	mu sync.Mutex

	Summary    repository.GlobalSummary
	Risk       map[string]int64
	Categories repository.RawCategoryAverages
	Trend      []models.TrendPoint
	Err        error

	Calls   int
	Filters []models.StatisticsFilter
}

var _ repository.StatisticsRepo = (*Stats)(nil)

func (s *Stats) record(f models.StatisticsFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	s.Filters = append(s.Filters, f)
	return s.Err
}

func (s *Stats) GlobalSummary(ctx context.Context, f models.StatisticsFilter) (repository.GlobalSummary, error) {
	return s.Summary, s.record(f)
}

func (s *Stats) RiskDistribution(ctx context.Context, f models.StatisticsFilter) (map[string]int64, error) {
	if err := s.record(f); err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for k, v := range s.Risk {
		out[k] = v
	}
	return out, nil
}

func (s *Stats) CategoryAverages(ctx context.Context, f models.StatisticsFilter) (repository.RawCategoryAverages, error) {
	return s.Categories, s.record(f)
}

func (s *Stats) GlobalScoreTrend(ctx context.Context, f models.StatisticsFilter) ([]models.TrendPoint, error) {
	if err := s.record(f); err != nil {
		return nil, err
	}
	return append([]models.TrendPoint{}, s.Trend...), nil
}
