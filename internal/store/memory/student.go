package memory

import (
	"context"
	"sort"
	"time"

	"membership/internal/student"
)

// StudentRepository keeps students in memory.
type StudentRepository struct {
	db *DB
}

func (r *StudentRepository) emailTaken(email, exclude string) bool {
	for id, s := range r.db.students {
		if s.Email == email && id != exclude {
			return true
		}
	}
	return false
}

func (r *StudentRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[s.IDNumber]; ok || r.emailTaken(s.Email, "") {
		return student.Student{}, student.ErrDuplicate
	}
	r.db.pk++
	now := r.db.now()
	s.StudentID = r.db.pk
	s.CreatedAt, s.UpdatedAt = now, now
	r.db.students[s.IDNumber] = &s
	return s, nil
}

func (r *StudentRepository) Get(ctx context.Context, idNumber string) (student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.students[idNumber]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.students {
		if s.Email == email {
			return *s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (r *StudentRepository) List(ctx context.Context) ([]student.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]student.Student, 0, len(r.db.students))
	for _, s := range r.db.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IDNumber < out[j].IDNumber })
	return out, nil
}

func (r *StudentRepository) IDNumbers(ctx context.Context) ([]string, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	ids := make([]string, 0, len(r.db.students))
	for id := range r.db.students {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *StudentRepository) Update(ctx context.Context, s student.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	cur, ok := r.db.students[s.IDNumber]
	if !ok {
		return student.ErrNotFound
	}
	if r.emailTaken(s.Email, s.IDNumber) {
		return student.ErrDuplicate
	}
	s.StudentID = cur.StudentID
	s.CreatedAt = cur.CreatedAt
	s.UpdatedAt = r.db.now()
	r.db.students[s.IDNumber] = &s
	return nil
}

func (r *StudentRepository) UpdatePassword(ctx context.Context, idNumber, hash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.students[idNumber]
	if !ok {
		return student.ErrNotFound
	}
	s.PasswordHash = hash
	s.UpdatedAt = r.db.now()
	return nil
}

// Delete removes the student with their attendance, list entry, payment and tokens.
func (r *StudentRepository) Delete(ctx context.Context, idNumber string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[idNumber]; !ok {
		return student.ErrNotFound
	}
	delete(r.db.students, idNumber)
	for k := range r.db.records {
		if k.idNumber == idNumber {
			delete(r.db.records, k)
		}
	}
	for tok, rt := range r.db.tokens {
		if rt.idNumber == idNumber {
			delete(r.db.tokens, tok)
		}
	}
	delete(r.db.sanctions, idNumber)
	delete(r.db.payments, idNumber)
	return nil
}

func (r *StudentRepository) SaveRefreshToken(ctx context.Context, idNumber, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[idNumber]; !ok {
		return student.ErrNotFound
	}
	r.db.tokens[token] = &refreshToken{idNumber: idNumber, expiresAt: expiresAt}
	return nil
}

func (r *StudentRepository) ConsumeRefreshToken(ctx context.Context, token string, now time.Time) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rt, ok := r.db.tokens[token]
	if !ok || rt.revoked || !rt.expiresAt.After(now) {
		return "", student.ErrNotFound
	}
	rt.revoked = true
	return rt.idNumber, nil
}
