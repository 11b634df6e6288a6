package models

// All lists every model managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Configuration{},
		&Address{},
		&Order{},
		&PaymentSession{},
		&PaymentCallbackHistory{},
		&ScheduledTask{},
		&ScheduledTaskHistory{},
	}
}
