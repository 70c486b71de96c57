package memory

import (
	"context"
	"fmt"
	"sort"

	"membership/internal/payment"
)

// PaymentRepository keeps payments in memory.
type PaymentRepository struct {
	db *DB
}

func (r *PaymentRepository) Save(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[p.IDNumber]; !ok {
		return payment.Payment{}, fmt.Errorf("student %s does not exist", p.IDNumber)
	}
	now := r.db.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if cur, ok := r.db.payments[p.IDNumber]; ok {
		p.CreatedAt = cur.CreatedAt
		if p.ReceiptURL == "" {
			p.ReceiptURL = cur.ReceiptURL
		}
	}
	r.db.payments[p.IDNumber] = &p
	return p, nil
}

func (r *PaymentRepository) Get(ctx context.Context, idNumber string) (payment.Payment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if p, ok := r.db.payments[idNumber]; ok {
		return *p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (r *PaymentRepository) Delete(ctx context.Context, idNumber string) (payment.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[idNumber]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	delete(r.db.payments, idNumber)
	return *p, nil
}

func (r *PaymentRepository) SetReceiptURL(ctx context.Context, idNumber, url string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[idNumber]
	if !ok {
		return payment.ErrNotFound
	}
	p.ReceiptURL = url
	p.UpdatedAt = r.db.now()
	return nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]payment.Row, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := make([]payment.Row, 0, len(r.db.students))
	for id, s := range r.db.students {
		row := payment.Row{StudentID: s.StudentID, IDNumber: id, FirstName: s.FirstName, LastName: s.LastName}
		if p, ok := r.db.payments[id]; ok {
			cp := *p
			row.Payment = &cp
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].IDNumber < rows[j].IDNumber })
	return rows, nil
}
