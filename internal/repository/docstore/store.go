package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsdevblog/paperify-pay/internal/domain"
)

const (
	OrdersFile    = "payment-orders.json"
	PaymentsFile  = "payments.json"
	ReferralsFile = "referrals.json"

	dirPerm  = 0o755
	filePerm = 0o644
)

type fileKind uint8

const (
	ordersKind fileKind = 1 << iota
	paymentsKind
	referralsKind
)

// referralsDoc формат referrals.json.
type referralsDoc struct {
	Users map[string]domain.ReferralProfile `json:"users"`
}

type state struct {
	orders    []domain.Order
	payments  []domain.Payment
	referrals map[string]domain.ReferralProfile
}

func (s *state) clone() *state {
	c := &state{
		orders:    make([]domain.Order, len(s.orders)),
		payments:  make([]domain.Payment, len(s.payments)),
		referrals: make(map[string]domain.ReferralProfile, len(s.referrals)),
	}
	for i, o := range s.orders {
		c.orders[i] = cloneOrder(o)
	}
	for i, p := range s.payments {
		c.payments[i] = clonePayment(p)
	}
	for k, p := range s.referrals {
		c.referrals[k] = cloneProfile(p)
	}
	return c
}

// Store хранилище записей в JSON файлах каталога dir. Все изменения проходят через один мьютекс,
// файл переписывается целиком через временный файл и rename.
type Store struct {
	dir string
	mu  sync.Mutex
	st  *state
}

// Open читает файлы из dir, создавая каталог при необходимости. Отсутствующий файл - пустая коллекция.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	s := &Store{dir: dir, st: &state{referrals: make(map[string]domain.ReferralProfile)}}

	if err := readJSON(filepath.Join(dir, OrdersFile), &s.st.orders); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, PaymentsFile), &s.st.payments); err != nil {
		return nil, err
	}
	var refs referralsDoc
	if err := readJSON(filepath.Join(dir, ReferralsFile), &refs); err != nil {
		return nil, err
	}
	for email, profile := range refs.Users {
		profile.Email = email
		if profile.PaidReferralUsers == nil {
			profile.PaidReferralUsers = []string{}
		}
		s.st.referrals[email] = profile
	}
	return s, nil
}

// Dir каталог с файлами.
func (s *Store) Dir() string {
	return s.dir
}

// commit записывает на диск изменившиеся коллекции и делает next текущим состоянием.
// Вызывается под s.mu.
func (s *Store) commit(next *state, dirty fileKind) error {
	if dirty&ordersKind != 0 {
		orders := next.orders
		if orders == nil {
			orders = []domain.Order{}
		}
		if err := writeJSON(filepath.Join(s.dir, OrdersFile), orders); err != nil {
			return err
		}
	}
	if dirty&paymentsKind != 0 {
		payments := next.payments
		if payments == nil {
			payments = []domain.Payment{}
		}
		if err := writeJSON(filepath.Join(s.dir, PaymentsFile), payments); err != nil {
			return err
		}
	}
	if dirty&referralsKind != 0 {
		if err := writeJSON(filepath.Join(s.dir, ReferralsFile), referralsDoc{Users: next.referrals}); err != nil {
			return err
		}
	}
	s.st = next
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func cloneOrder(o domain.Order) domain.Order {
	o.Books = cloneStrings(o.Books)
	return o
}

func clonePayment(p domain.Payment) domain.Payment {
	p.Books = cloneStrings(p.Books)
	return p
}

func cloneProfile(p domain.ReferralProfile) domain.ReferralProfile {
	p.PaidReferralUsers = cloneStrings(p.PaidReferralUsers)
	return p
}
