package services

import (
	"time"

	"casecraft_echo/internal/repository"
)

func paidNow() repository.PaidDetails {
	return repository.PaidDetails{PaidAt: time.Now()}
}
