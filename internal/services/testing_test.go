package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/eduspark/exam-service/internal/models"
	"github.com/eduspark/exam-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. Not
// transactional: WithTransaction just runs the function against the same
// store, which is enough to exercise the service logic.
type fakeRepository struct {
	mu sync.Mutex

	exams     map[uint]*models.Exam
	questions map[uint]*models.Question
	attempts  map[uint]*models.ExamAttempt
	results   map[uint]*models.ExamResult // keyed by attempt id
	users     map[string]*models.User

	nextExamID     uint
	nextQuestionID uint
	nextAttemptID  uint
	nextResultID   uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		exams:     make(map[uint]*models.Exam),
		questions: make(map[uint]*models.Question),
		attempts:  make(map[uint]*models.ExamAttempt),
		results:   make(map[uint]*models.ExamResult),
		users:     make(map[string]*models.User),
	}
}

func (f *fakeRepository) Exam() repositories.ExamRepository         { return &fakeExamRepo{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository { return &fakeQuestionRepo{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository   { return &fakeAttemptRepo{f} }
func (f *fakeRepository) Result() repositories.ResultRepository     { return &fakeResultRepo{f} }
func (f *fakeRepository) User() repositories.UserRepository         { return &fakeUserRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== EXAMS =====

type fakeExamRepo struct{ f *fakeRepository }

func (r *fakeExamRepo) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextExamID++
	exam.ID = r.f.nextExamID
	exam.CreatedAt = time.Now()
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam, ok := r.f.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return exam, nil
}

func (r *fakeExamRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	exam, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	questions, _ := (&fakeQuestionRepo{r.f}).GetByExam(ctx, tx, id)
	exam.Questions = nil
	for _, q := range questions {
		exam.Questions = append(exam.Questions, *q)
	}
	return exam, nil
}

func (r *fakeExamRepo) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.exams[exam.ID]; !ok {
		return repositories.ErrNotFound
	}
	exam.UpdatedAt = time.Now()
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExamRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.exams, id)
	return nil
}

func (r *fakeExamRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Exam
	for _, exam := range r.f.exams {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		if filters.CourseID != nil && exam.CourseID != *filters.CourseID {
			continue
		}
		if filters.CreatedBy != nil && exam.CreatedBy != *filters.CreatedBy {
			continue
		}
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeExamRepo) GetByCourse(ctx context.Context, tx *gorm.DB, courseID uint, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	filters.CourseID = &courseID
	return r.List(ctx, tx, filters)
}

func (r *fakeExamRepo) GetPublished(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	status := models.ExamPublished
	filters.Status = &status
	return r.List(ctx, tx, filters)
}

func (r *fakeExamRepo) UpdateStatusIfCurrent(ctx context.Context, tx *gorm.DB, id uint, current, next models.ExamStatus, publishedAt time.Time) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	exam, ok := r.f.exams[id]
	if !ok || exam.Status != current {
		return false, nil
	}
	exam.Status = next
	if next == models.ExamPublished {
		exam.PublishedAt = &publishedAt
	}
	return true, nil
}

func (r *fakeExamRepo) GetStats(ctx context.Context, tx *gorm.DB, id uint) (*repositories.ExamStats, error) {
	return &repositories.ExamStats{}, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct{ f *fakeRepository }

func (r *fakeQuestionRepo) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextQuestionID++
	question.ID = r.f.nextQuestionID
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	q, ok := r.f.questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return q, nil
}

func (r *fakeQuestionRepo) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.questions[question.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestionRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestionRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.Question
	for _, q := range r.f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *fakeQuestionRepo) CountByExam(ctx context.Context, tx *gorm.DB, examID uint) (int, error) {
	questions, _ := r.GetByExam(ctx, tx, examID)
	return len(questions), nil
}

func (r *fakeQuestionRepo) SumPointsByExam(ctx context.Context, tx *gorm.DB, examID uint) (float64, error) {
	questions, _ := r.GetByExam(ctx, tx, examID)
	var sum float64
	for _, q := range questions {
		sum += q.Points
	}
	return sum, nil
}

func (r *fakeQuestionRepo) NextOrderIndex(ctx context.Context, tx *gorm.DB, examID uint) (int, error) {
	questions, _ := r.GetByExam(ctx, tx, examID)
	max := 0
	for _, q := range questions {
		if q.OrderIndex > max {
			max = q.OrderIndex
		}
	}
	return max + 1, nil
}

// ===== ATTEMPTS =====

type fakeAttemptRepo struct{ f *fakeRepository }

func (r *fakeAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextAttemptID++
	attempt.ID = r.f.nextAttemptID
	attempt.CreatedAt = time.Now()
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	attempt, ok := r.f.attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return attempt, nil
}

func (r *fakeAttemptRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeAttemptRepo) Update(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.attempts[attempt.ID]; !ok {
		return repositories.ErrNotFound
	}
	attempt.UpdatedAt = time.Now()
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttemptRepo) GetActiveAttempt(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (*models.ExamAttempt, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, attempt := range r.f.attempts {
		if attempt.ExamID == examID && attempt.StudentID == studentID && attempt.Status == models.AttemptInProgress {
			return attempt, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeAttemptRepo) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamAttempt
	for _, attempt := range r.f.attempts {
		if attempt.StudentID != studentID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		out = append(out, attempt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamAttempt
	for _, attempt := range r.f.attempts {
		if attempt.ExamID != examID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		out = append(out, attempt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) CountByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) (int, error) {
	attempts, _, err := r.GetByExam(ctx, tx, examID, repositories.AttemptFilters{StudentID: &studentID})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, a := range attempts {
		if a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

// ===== RESULTS =====

type fakeResultRepo struct{ f *fakeRepository }

func (r *fakeResultRepo) Create(ctx context.Context, tx *gorm.DB, result *models.ExamResult) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.nextResultID++
	result.ID = r.f.nextResultID
	result.CreatedAt = time.Now()
	stored := *result
	r.f.results[result.AttemptID] = &stored
	return nil
}

func (r *fakeResultRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (*models.ExamResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	result, ok := r.f.results[attemptID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *result
	return &copied, nil
}

func (r *fakeResultRepo) GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.ExamResult, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []*models.ExamResult
	for _, result := range r.f.results {
		if result.ExamID == examID {
			copied := *result
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptID < out[j].AttemptID })
	return out, nil
}

func (r *fakeResultRepo) GetByExamAndStudent(ctx context.Context, tx *gorm.DB, examID uint, studentID string) ([]*models.ExamResult, error) {
	results, err := r.GetByExam(ctx, tx, examID)
	if err != nil {
		return nil, err
	}
	var out []*models.ExamResult
	for _, result := range results {
		if result.StudentID == studentID {
			out = append(out, result)
		}
	}
	return out, nil
}

// ===== USERS =====

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, user := range r.f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.ErrNotFound
}
