// Package tools implements the business operations the assistant can invoke:
// customer, quote and work order management, payment charging and revenue
// reporting. The backing Store is in-memory with seeded demo data; swapping
// it for the real SaaS services only touches this package.
package tools

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Customer is a field-service client record.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Quote is a service estimate for a client.
type Quote struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Items      string    `json:"items"`
	TotalCents int64     `json:"total_cents,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// WorkOrder is a scheduled service job.
type WorkOrder struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id,omitempty"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ScheduledDate string    `json:"scheduled_date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// WorkOrderStatuses are the allowed status transitions targets.
var WorkOrderStatuses = []string{"pending", "scheduled", "in_progress", "completed", "cancelled"}

// Charge is a confirmed payment charge created from a preview.
type Charge struct {
	ID          string    `json:"id"`
	PreviewID   string    `json:"preview_id"`
	CustomerID  string    `json:"customer_id"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store holds the demo business data behind the tools.
type Store struct {
	mu         sync.RWMutex
	customers  []Customer
	quotes     []Quote
	workOrders []WorkOrder
	charges    []Charge

	// chargeByIdempotencyKey deduplicates retried charge creations.
	chargeByIdempotencyKey map[string]string
}

// NewStore returns a store seeded with demo data.
func NewStore() *Store {
	now := time.Now().UTC()
	return &Store{
		customers: []Customer{
			{ID: "cust_001", Name: "Maria Oliveira", Phone: "+55 11 98888-0001", Email: "maria@example.com", Address: "Rua das Flores, 120", CreatedAt: now.Add(-90 * 24 * time.Hour)},
			{ID: "cust_002", Name: "Carlos Santos", Phone: "+55 11 98888-0002", Email: "carlos@example.com", Address: "Av. Paulista, 900", CreatedAt: now.Add(-60 * 24 * time.Hour)},
			{ID: "cust_003", Name: "Ana Pereira", Phone: "+55 21 97777-0003", Email: "ana@example.com", Address: "Rua do Catete, 45", CreatedAt: now.Add(-30 * 24 * time.Hour)},
		},
		quotes: []Quote{
			{ID: "quote_001", ClientName: "Maria Oliveira", Items: "Troca de disjuntor, revisão do quadro elétrico", TotalCents: 35000, Status: "sent", CreatedAt: now.Add(-20 * 24 * time.Hour)},
			{ID: "quote_002", ClientName: "Carlos Santos", Items: "Instalação de ar-condicionado split 12000 BTU", TotalCents: 120000, Status: "accepted", CreatedAt: now.Add(-10 * 24 * time.Hour)},
		},
		workOrders: []WorkOrder{
			{ID: "wo_001", CustomerID: "cust_002", Description: "Instalação de ar-condicionado", Status: "scheduled", ScheduledDate: now.Add(48 * time.Hour).Format("2006-01-02"), CreatedAt: now.Add(-5 * 24 * time.Hour)},
		},
		charges: []Charge{
			{ID: "charge_001", PreviewID: "prev_seed", CustomerID: "cust_002", Description: "Sinal da instalação", AmountCents: 60000, Currency: "BRL", Status: "paid", CreatedAt: now.Add(-7 * 24 * time.Hour)},
		},
		chargeByIdempotencyKey: map[string]string{},
	}
}

// CreateCustomer adds a customer and returns the stored record.
func (s *Store) CreateCustomer(name, phone, email, address string) Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer := Customer{
		ID:        "cust_" + uuid.New().String()[:8],
		Name:      name,
		Phone:     phone,
		Email:     email,
		Address:   address,
		CreatedAt: time.Now().UTC(),
	}
	s.customers = append(s.customers, customer)
	return customer
}

// SearchCustomers matches query against name, email and phone.
func (s *Store) SearchCustomers(query string) []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	var out []Customer
	for _, c := range s.customers {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(c.Phone, query) {
			out = append(out, c)
		}
	}
	return out
}

// CreateQuote adds a quote in draft status.
func (s *Store) CreateQuote(clientName, items string, totalCents int64) Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	quote := Quote{
		ID:         "quote_" + uuid.New().String()[:8],
		ClientName: clientName,
		Items:      items,
		TotalCents: totalCents,
		Status:     "draft",
		CreatedAt:  time.Now().UTC(),
	}
	s.quotes = append(s.quotes, quote)
	return quote
}

// ListQuotes returns quotes, optionally filtered by client name.
func (s *Store) ListQuotes(clientName string) []Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if clientName == "" {
		out := make([]Quote, len(s.quotes))
		copy(out, s.quotes)
		return out
	}
	q := strings.ToLower(clientName)
	var out []Quote
	for _, quote := range s.quotes {
		if strings.Contains(strings.ToLower(quote.ClientName), q) {
			out = append(out, quote)
		}
	}
	return out
}

// CreateWorkOrder adds a work order in pending status.
func (s *Store) CreateWorkOrder(customerID, description, scheduledDate string) WorkOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := WorkOrder{
		ID:            "wo_" + uuid.New().String()[:8],
		CustomerID:    customerID,
		Description:   description,
		Status:        "pending",
		ScheduledDate: scheduledDate,
		CreatedAt:     time.Now().UTC(),
	}
	s.workOrders = append(s.workOrders, order)
	return order
}

// UpdateWorkOrderStatus moves a work order to the given status.
func (s *Store) UpdateWorkOrderStatus(id, status string) (WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.workOrders {
		if s.workOrders[i].ID == id {
			s.workOrders[i].Status = status
			return s.workOrders[i], nil
		}
	}
	return WorkOrder{}, fmt.Errorf("ordem de serviço %s não encontrada", id)
}

// CreateCharge records a charge. When idempotencyKey repeats a previous call
// the original charge is returned instead of creating a duplicate.
func (s *Store) CreateCharge(idempotencyKey, previewID, customerID, description string, amountCents int64, currency string) (Charge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		if existingID, ok := s.chargeByIdempotencyKey[idempotencyKey]; ok {
			for _, c := range s.charges {
				if c.ID == existingID {
					return c, true
				}
			}
		}
	}

	charge := Charge{
		ID:          "charge_" + uuid.New().String()[:8],
		PreviewID:   previewID,
		CustomerID:  customerID,
		Description: description,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      "pending",
		CreatedAt:   time.Now().UTC(),
	}
	s.charges = append(s.charges, charge)
	if idempotencyKey != "" {
		s.chargeByIdempotencyKey[idempotencyKey] = charge.ID
	}
	return charge, false
}

// Revenue sums charge amounts created inside [from, to].
func (s *Store) Revenue(from, to time.Time) (int64, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	count := 0
	for _, c := range s.charges {
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}
		total += c.AmountCents
		count++
	}
	return total, count
}
