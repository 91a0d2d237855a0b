package request

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/dispatch-api/internal/model"
)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterStructValidation(createRequestStructLevel, model.CreateRequestRequest{})
}

// createRequestStructLevel enforces the conditional field requirements
// at the binding boundary, before the service layer sees the input.
func createRequestStructLevel(sl validator.StructLevel) {
	input := sl.Current().Interface().(model.CreateRequestRequest)

	if input.Category == model.RequestCategoryInPerson {
		if input.RequesterLat == nil {
			sl.ReportError(input.RequesterLat, "requester_lat", "RequesterLat", "required_for_in_person", "")
		}
		if input.RequesterLng == nil {
			sl.ReportError(input.RequesterLng, "requester_lng", "RequesterLng", "required_for_in_person", "")
		}
	}

	if input.DoctorSelection == model.DoctorSelectionPreferred && input.PreferredDoctorID == nil {
		sl.ReportError(input.PreferredDoctorID, "preferred_doctor_id", "PreferredDoctorID", "required_for_preferred", "")
	}
}
