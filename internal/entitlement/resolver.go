// Package entitlement решает, какие объекты каталога видит пользователь.
//
// Решение чистое: зависит только от текущего времени, пользователя и его
// подписки. Выборку по готовому Filter делает хранилище.
package entitlement

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/magabrotheeeer/geoestate/internal/models"
)

var (
	// ErrNoSubscription у пользователя нет подписки, а пробный период закончился.
	ErrNoSubscription = errors.New("no active subscription")
	// ErrSubscriptionExpired подписка не активна или срок её действия истёк.
	ErrSubscriptionExpired = errors.New("subscription expired, please renew")
)

// Mode способ ограничения каталога.
type Mode int

const (
	// ModeAll без ограничений.
	ModeAll Mode = iota
	// ModeInclude только перечисленные категории.
	ModeInclude
	// ModeExclude всё, кроме перечисленных категорий.
	ModeExclude
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeInclude:
		return "include"
	case ModeExclude:
		return "exclude"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Filter предикат над каталогом объектов по категории (unit_type).
type Filter struct {
	Mode       Mode
	Categories []string
	// Grant откуда получен доступ: "trial" или название тарифа.
	Grant string
}

// Allows сообщает, видна ли категория через фильтр.
func (f Filter) Allows(category string) bool {
	switch f.Mode {
	case ModeInclude:
		return slices.Contains(f.Categories, category)
	case ModeExclude:
		return !slices.Contains(f.Categories, category)
	default:
		return true
	}
}

// Resolver хранит настройки категорий для тарифов.
type Resolver struct {
	basic           []string
	premiumExcluded []string
}

// NewResolver создаёт Resolver. Категории Basic не могут входить в исключения
// Premium, иначе более дорогой тариф видел бы меньше дешёвого.
func NewResolver(basic, premiumExcluded []string) (*Resolver, error) {
	const op = "entitlement.NewResolver"
	for _, c := range basic {
		if slices.Contains(premiumExcluded, c) {
			return nil, fmt.Errorf("%s: category %q is both basic and excluded from premium", op, c)
		}
	}
	return &Resolver{
		basic:           slices.Clone(basic),
		premiumExcluded: slices.Clone(premiumExcluded),
	}, nil
}

// Decide возвращает фильтр каталога для пользователя.
//
// Действующий пробный период всегда имеет приоритет над подпиской.
// sub == nil означает, что подписки нет.
func (r *Resolver) Decide(now time.Time, user *models.User, sub *models.Subscription) (Filter, error) {
	if user.TrialValid(now) {
		return Filter{Mode: ModeAll, Grant: "trial"}, nil
	}
	if sub == nil {
		return Filter{}, ErrNoSubscription
	}
	if !sub.IsValid(now) {
		return Filter{}, ErrSubscriptionExpired
	}
	if sub.Plan == nil {
		return Filter{}, ErrNoSubscription
	}
	return r.PlanFilter(sub.Plan.Name)
}

// PlanFilter фильтр, который даёт тариф сам по себе.
func (r *Resolver) PlanFilter(name models.PlanName) (Filter, error) {
	switch name {
	case models.PlanBasic:
		return Filter{Mode: ModeInclude, Categories: slices.Clone(r.basic), Grant: string(name)}, nil
	case models.PlanPremium:
		return Filter{Mode: ModeExclude, Categories: slices.Clone(r.premiumExcluded), Grant: string(name)}, nil
	case models.PlanEnterprise:
		return Filter{Mode: ModeAll, Grant: string(name)}, nil
	}
	return Filter{}, fmt.Errorf("entitlement.PlanFilter: unknown plan %q", name)
}
