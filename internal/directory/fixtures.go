package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultNamespace seeds ids when a fixture file does not name its own.
// Changing it changes every generated id.
var DefaultNamespace = uuid.MustParse("6f1c2b1e-8d4a-5c3e-9b7f-2a1d0e4c6b58")

type AddressFixture struct {
	Street     string `yaml:"street"`
	Number     string `yaml:"number"`
	Complement string `yaml:"complement"`
	District   string `yaml:"district"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	CEP        string `yaml:"cep"`
}

type UserFixture struct {
	Key     string          `yaml:"key"`
	Name    string          `yaml:"name"`
	Email   string          `yaml:"email"`
	Address *AddressFixture `yaml:"address"`
}

type ShelterFixture struct {
	Key       string          `yaml:"key"`
	Name      string          `yaml:"name"`
	Capacity  int             `yaml:"capacity"`
	Occupancy int             `yaml:"occupancy"`
	Address   *AddressFixture `yaml:"address"`
}

// Fixtures is the YAML seed file. Keys are stable handles; ids are derived
// from them so re-seeding updates rows in place.
type Fixtures struct {
	Namespace string           `yaml:"namespace"`
	Users     []UserFixture    `yaml:"users"`
	Shelters  []ShelterFixture `yaml:"shelters"`
}

func LoadFixtures(path string) (*Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixtures(b)
}

func ParseFixtures(b []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.UnmarshalWithOptions(b, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) validate() error {
	if f.Namespace != "" {
		if _, err := uuid.Parse(f.Namespace); err != nil {
			return fmt.Errorf("invalid namespace uuid: %w", err)
		}
	}

	seen := map[string]bool{}
	check := func(prefix, key, name string, i int) error {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%s #%d: key is required", prefix, i+1)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s %q: name is required", prefix, key)
		}
		if seen[prefix+":"+key] {
			return fmt.Errorf("%s %q: duplicate key", prefix, key)
		}
		seen[prefix+":"+key] = true
		return nil
	}
	for i, u := range f.Users {
		if err := check("user", u.Key, u.Name, i); err != nil {
			return err
		}
	}
	for i, s := range f.Shelters {
		if err := check("shelter", s.Key, s.Name, i); err != nil {
			return err
		}
		if s.Capacity < 0 || s.Occupancy < 0 {
			return fmt.Errorf("shelter %q: capacity and occupancy must be >= 0", s.Key)
		}
	}
	return nil
}

func (f *Fixtures) namespace() uuid.UUID {
	if f.Namespace == "" {
		return DefaultNamespace
	}
	return uuid.MustParse(f.Namespace)
}

func v5(ns uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(ns, []byte(name))
}

func UserID(ns uuid.UUID, key string) uuid.UUID    { return v5(ns, "user:"+key) }
func ShelterID(ns uuid.UUID, key string) uuid.UUID { return v5(ns, "shelter:"+key) }

func addressID(ns uuid.UUID, owner string) uuid.UUID {
	return v5(ns, "address:"+owner)
}

// Records is the row set a fixture file expands to.
type Records struct {
	Addresses []Address
	Users     []User
	Shelters  []Shelter
}

// Build expands fixtures into rows with deterministic ids.
func (f *Fixtures) Build() Records {
	ns := f.namespace()
	var out Records

	addr := func(owner string, a *AddressFixture) *uuid.UUID {
		if a == nil {
			return nil
		}
		id := addressID(ns, owner)
		out.Addresses = append(out.Addresses, Address{
			ID:         id,
			Street:     strings.TrimSpace(a.Street),
			Number:     strings.TrimSpace(a.Number),
			Complement: strings.TrimSpace(a.Complement),
			District:   strings.TrimSpace(a.District),
			City:       strings.TrimSpace(a.City),
			State:      strings.ToUpper(strings.TrimSpace(a.State)),
			CEP:        strings.TrimSpace(a.CEP),
		})
		return &id
	}

	for _, u := range f.Users {
		out.Users = append(out.Users, User{
			ID:        UserID(ns, u.Key),
			Name:      strings.TrimSpace(u.Name),
			Email:     strings.ToLower(strings.TrimSpace(u.Email)),
			AddressID: addr("user:"+u.Key, u.Address),
		})
	}
	for _, s := range f.Shelters {
		out.Shelters = append(out.Shelters, Shelter{
			ID:        ShelterID(ns, s.Key),
			Name:      strings.TrimSpace(s.Name),
			Capacity:  s.Capacity,
			Occupancy: s.Occupancy,
			AddressID: addr("shelter:"+s.Key, s.Address),
		})
	}
	return out
}

var ErrEmptyFixtures = errors.New("fixtures contain no users or shelters")

// Seed upserts every fixture record in one transaction.
func Seed(ctx context.Context, d *gorm.DB, f *Fixtures) (Records, error) {
	recs := f.Build()
	if len(recs.Users) == 0 && len(recs.Shelters) == 0 {
		return recs, ErrEmptyFixtures
	}

	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}

	err := d.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(recs.Addresses) > 0 {
			if err := tx.Clauses(upsert).Create(&recs.Addresses).Error; err != nil {
				return fmt.Errorf("upsert addresses: %w", err)
			}
		}
		if len(recs.Users) > 0 {
			if err := tx.Omit("Address").Clauses(upsert).Create(&recs.Users).Error; err != nil {
				return fmt.Errorf("upsert users: %w", err)
			}
		}
		if len(recs.Shelters) > 0 {
			if err := tx.Omit("Address").Clauses(upsert).Create(&recs.Shelters).Error; err != nil {
				return fmt.Errorf("upsert shelters: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return recs, err
	}

	log.Printf("[directory] seeded %d users, %d shelters, %d addresses",
		len(recs.Users), len(recs.Shelters), len(recs.Addresses))
	return recs, nil
}
