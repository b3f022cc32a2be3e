package main

import (
	"github.com/station42/shopfloor/internal/model"
	"github.com/station42/shopfloor/internal/validator"
)

// Validation rules

func validateCreateOrder(v *validator.Validator, request requestCreateOrder) {
	v.CheckField(validator.NotBlank(request.Type), "type", "cannot be blank")
	v.CheckField(validator.NotBlank(request.Description), "description", "cannot be blank")
	v.CheckField(validator.NotBlank(request.Status), "status", "cannot be blank")
	v.CheckField(
		validator.In(request.Status, string(model.StatusProductive), string(model.StatusRework)),
		"status",
		"must be Productive or Rework",
	)
	v.CheckField(validator.MaxRunes(request.Description, 1000), "description", "is too long")
}

func validateAppendSession(v *validator.Validator, request requestAppendSession) {
	v.CheckField(validator.NotBlank(request.OrderID), "orderId", "cannot be blank")
	v.CheckField(validator.NotBlank(request.Session.EmployeeName), "session.employeeName", "cannot be blank")
	v.CheckField(!request.Session.StartTime.IsZero(), "session.startTime", "must be a valid timestamp")
	v.CheckField(!request.Session.Open(), "session.endTime", "must be set, only closed sessions can be appended")
	v.CheckField(request.Session.Duration >= 0, "session.duration", "must not be negative")
}
