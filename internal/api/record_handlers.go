package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sproutlingapp/sproutling-server/internal/domain"
	"github.com/sproutlingapp/sproutling-server/internal/http/response"
)

// childRecordRoutes mounts the per-type record endpoints under
// /api/v1/children/{id}/records.
func (s *Server) childRecordRoutes(r chi.Router) {
	r.Route("/feedings", func(r chi.Router) {
		r.Post("/", s.handleCreateFeedingLog)
		r.Get("/", s.handleListFeedingLogs)
		r.Patch("/{recordID}", s.handleUpdateFeedingLog)
		r.Delete("/{recordID}", s.handleDeleteFeedingLog)
	})
	r.Route("/sleep", func(r chi.Router) {
		r.Post("/", s.handleCreateSleepSession)
		r.Get("/", s.handleListSleepSessions)
		r.Patch("/{recordID}", s.handleUpdateSleepSession)
		r.Delete("/{recordID}", s.handleDeleteSleepSession)
	})
	r.Route("/diapers", func(r chi.Router) {
		r.Post("/", s.handleCreateDiaperChange)
		r.Get("/", s.handleListDiaperChanges)
		r.Delete("/{recordID}", s.handleDeleteDiaperChange)
	})
	r.Route("/growth", func(r chi.Router) {
		r.Post("/", s.handleCreateGrowthMeasurement)
		r.Get("/", s.handleListGrowthMeasurements)
		r.Delete("/{recordID}", s.handleDeleteGrowthMeasurement)
	})
	r.Route("/medications", func(r chi.Router) {
		r.Post("/", s.handleCreateMedicationDose)
		r.Get("/", s.handleListMedicationDoses)
		r.Delete("/{recordID}", s.handleDeleteMedicationDose)
	})
	r.Route("/foods", func(r chi.Router) {
		r.Post("/", s.handleCreateFoodIntroduction)
		r.Get("/", s.handleListFoodIntroductions)
		r.Patch("/{recordID}", s.handleUpdateFoodIntroduction)
		r.Delete("/{recordID}", s.handleDeleteFoodIntroduction)
	})
	r.Route("/meals", func(r chi.Router) {
		r.Post("/", s.handleCreateMealPlanEntry)
		r.Get("/", s.handleListMealPlanEntries)
		r.Patch("/{recordID}", s.handleUpdateMealPlanEntry)
		r.Delete("/{recordID}", s.handleDeleteMealPlanEntry)
	})
	r.Route("/goals", func(r chi.Router) {
		r.Post("/", s.handleCreateNutrientGoals)
		r.Get("/", s.handleListNutrientGoals)
		r.Patch("/{recordID}", s.handleUpdateNutrientGoals)
	})
}

// callerAndChild pulls the authenticated account and the child route param.
func (s *Server) callerAndChild(w http.ResponseWriter, r *http.Request) (accountID, childID string, ok bool) {
	accountID, err := requireAccount(r)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return "", "", false
	}
	return accountID, chi.URLParam(r, "id"), true
}

// decodeBody reads a JSON request body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.UnmarshalRead(r.Body, v); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return false
	}
	return true
}

// Feeding logs.

func (s *Server) handleCreateFeedingLog(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.FeedingLog
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateFeedingLog(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListFeedingLogs(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	logs, err := s.services.Records.ListFeedingLogs(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, logs, s.logger)
}

func (s *Server) handleUpdateFeedingLog(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var body domain.FeedingLog
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateFeedingLog(r.Context(), accountID, chi.URLParam(r, "recordID"), func(f *domain.FeedingLog) {
		f.Method = body.Method
		f.StartAt = body.StartAt
		f.EndAt = body.EndAt
		f.AmountML = body.AmountML
		f.Side = body.Side
		f.FoodName = body.FoodName
		f.Notes = body.Notes
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) handleDeleteFeedingLog(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteFeedingLog(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Sleep sessions.

func (s *Server) handleCreateSleepSession(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.SleepSession
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateSleepSession(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListSleepSessions(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	sessions, err := s.services.Records.ListSleepSessions(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, sessions, s.logger)
}

func (s *Server) handleUpdateSleepSession(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var body domain.SleepSession
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateSleepSession(r.Context(), accountID, chi.URLParam(r, "recordID"), func(ss *domain.SleepSession) {
		ss.StartAt = body.StartAt
		ss.EndAt = body.EndAt
		ss.IsNap = body.IsNap
		ss.Notes = body.Notes
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) handleDeleteSleepSession(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteSleepSession(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Diaper changes.

func (s *Server) handleCreateDiaperChange(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.DiaperChange
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateDiaperChange(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListDiaperChanges(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	changes, err := s.services.Records.ListDiaperChanges(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, changes, s.logger)
}

func (s *Server) handleDeleteDiaperChange(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteDiaperChange(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Growth measurements.

func (s *Server) handleCreateGrowthMeasurement(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.GrowthMeasurement
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateGrowthMeasurement(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListGrowthMeasurements(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	measurements, err := s.services.Records.ListGrowthMeasurements(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, measurements, s.logger)
}

func (s *Server) handleDeleteGrowthMeasurement(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteGrowthMeasurement(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Medication doses.

func (s *Server) handleCreateMedicationDose(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.MedicationDose
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateMedicationDose(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListMedicationDoses(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	doses, err := s.services.Records.ListMedicationDoses(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, doses, s.logger)
}

func (s *Server) handleDeleteMedicationDose(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteMedicationDose(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Food introductions.

func (s *Server) handleCreateFoodIntroduction(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.FoodIntroduction
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateFoodIntroduction(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListFoodIntroductions(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	foods, err := s.services.Records.ListFoodIntroductions(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, foods, s.logger)
}

func (s *Server) handleUpdateFoodIntroduction(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var body domain.FoodIntroduction
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateFoodIntroduction(r.Context(), accountID, chi.URLParam(r, "recordID"), func(f *domain.FoodIntroduction) {
		f.FoodName = body.FoodName
		f.FirstTriedAt = body.FirstTriedAt
		f.Reaction = body.Reaction
		f.IsAllergen = body.IsAllergen
		f.Notes = body.Notes
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) handleDeleteFoodIntroduction(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteFoodIntroduction(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleListAllergens returns flagged allergen exposures for a child.
// GET /api/v1/children/{id}/allergens.
func (s *Server) handleListAllergens(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	flagged, err := s.services.Records.ListAllergens(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, flagged, s.logger)
}

// Meal plan entries.

func (s *Server) handleCreateMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.MealPlanEntry
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateMealPlanEntry(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListMealPlanEntries(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	entries, err := s.services.Records.ListMealPlanEntries(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, entries, s.logger)
}

func (s *Server) handleUpdateMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var body domain.MealPlanEntry
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateMealPlanEntry(r.Context(), accountID, chi.URLParam(r, "recordID"), func(m *domain.MealPlanEntry) {
		m.Date = body.Date
		m.Meal = body.Meal
		m.RecipeID = body.RecipeID
		m.Notes = body.Notes
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) handleDeleteMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	if err := s.services.Records.DeleteMealPlanEntry(r.Context(), accountID, chi.URLParam(r, "recordID")); err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// Nutrient goals.

func (s *Server) handleCreateNutrientGoals(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var rec domain.NutrientGoals
	if !s.decodeBody(w, r, &rec) {
		return
	}
	rec.ChildID = childID

	created, err := s.services.Records.CreateNutrientGoals(r.Context(), accountID, &rec)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Created(w, created, s.logger)
}

func (s *Server) handleListNutrientGoals(w http.ResponseWriter, r *http.Request) {
	accountID, childID, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	goals, err := s.services.Records.ListNutrientGoals(r.Context(), accountID, childID)
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, goals, s.logger)
}

func (s *Server) handleUpdateNutrientGoals(w http.ResponseWriter, r *http.Request) {
	accountID, _, ok := s.callerAndChild(w, r)
	if !ok {
		return
	}
	var body domain.NutrientGoals
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.services.Records.UpdateNutrientGoals(r.Context(), accountID, chi.URLParam(r, "recordID"), func(n *domain.NutrientGoals) {
		n.DailyCalories = body.DailyCalories
		n.DailyIronMg = body.DailyIronMg
		n.DailyCalcMg = body.DailyCalcMg
		n.DailyFluidML = body.DailyFluidML
	})
	if err != nil {
		handleServiceError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}
