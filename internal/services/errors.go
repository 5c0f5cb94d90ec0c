package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"studyarchive/internal/apperr"
)

// storeErr 把存储层错误归类：记录不存在为 NotFound，其余视为存储不可用
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Newf(apperr.NotFound, "%s not found", what)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.Conflict, what+" already exists", err)
	}
	return apperr.Wrap(apperr.StoreUnavailable, "load "+what, err)
}

// ReadRetry controls how idempotent reads are retried on StoreUnavailable.
// Writes are never retried.
type ReadRetry struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

var DefaultReadRetry = ReadRetry{MaxRetries: 2, InitialInterval: 50 * time.Millisecond}

func (r ReadRetry) do(ctx context.Context, op func() error) error {
	if r.MaxRetries == 0 {
		return op()
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialInterval
	eb.MaxElapsedTime = 5 * time.Second

	b := backoff.WithContext(backoff.WithMaxRetries(eb, r.MaxRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !apperr.Is(err, apperr.StoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return strings.ToLower(fld.Name)
			}
			return name
		})
	})
	return validate
}

// validateInput runs struct validation and converts failures to ValidationError.
func validateInput(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.ValidationError, "invalid input", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apperr.New(apperr.ValidationError, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}
