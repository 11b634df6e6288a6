package tasks

// Dependencies are the collaborators task handlers need.
type Dependencies struct {
	Payments PaymentSyncer
	Orders   OrderLoader
	Mailer   Mailer
	AppURL   string
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, deps Dependencies) {
	syncPending := NewSyncPendingPaymentsTask(deps.Payments)
	r.Register(syncPending.TaskID(), syncPending.HandleExecution)

	syncOrder := NewSyncOrderPaymentTask(deps.Payments)
	r.Register(syncOrder.TaskID(), syncOrder.HandleExecution)

	confirmation := NewSendOrderConfirmationTask(deps.Orders, deps.Mailer, deps.AppURL)
	r.Register(confirmation.TaskID(), confirmation.HandleExecution)
}
