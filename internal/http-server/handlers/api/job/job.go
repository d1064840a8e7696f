package job

import (
	"encoding/json"
	serrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/lib/errors"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type JobSaver interface {
	CreateJob(actor user.Actor, req job.JobRequest) (job.Job, error)
}

type JobsReader interface {
	Jobs(status job.Status, jobType job.JobType) ([]job.Job, error)
}

type MyJobsReader interface {
	MyJobs(actor user.Actor) ([]job.Job, error)
}

type NearbyReader interface {
	Nearby(actor user.Actor, origin *dispatch.Coordinates, radiusKm float64) ([]job.NearbyJob, error)
}

type JobStatusReader interface {
	JobStatus(jobId string) (job.Status, error)
}

type JobEditor interface {
	EditJob(jobId string, actor user.Actor, patch dispatch.JobPatch) (job.Job, error)
}

type JobCanceller interface {
	Cancel(jobId string, actor user.Actor) (job.Job, error)
}

type JobCompleter interface {
	Complete(jobId string, actor user.Actor) (job.Job, error)
}

func NewPostJob(log *slog.Logger, jobSaver JobSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		var req job.JobRequest

		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()

		err := decoder.Decode(&req)
		if err != nil {
			log.Error("Error decoding request body")
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("Error decoding request body"))
			return
		}

		err = validate.Struct(req)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("One of the fields is missing or invalid"))
			return
		}

		resp, err := jobSaver.CreateJob(actor, req)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJobs(log *slog.Logger, jobsReader JobsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := user.ActorFromRequest(r); !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		status := job.Status(r.URL.Query().Get("status"))
		if status != "" && !job.ValidStatus(status) {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The status is wrong"))
			return
		}
		jobType := job.JobType(r.URL.Query().Get("job_type"))

		resp, err := jobsReader.Jobs(status, jobType)
		if err != nil {
			log.Error("Failed to read jobs", slog.Attr{Key: "error", Value: slog.StringValue(err.Error())})
			render.Status(r, 500)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetMyJobs(log *slog.Logger, myJobsReader MyJobsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		resp, err := myJobsReader.MyJobs(actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetNearbyJobs(log *slog.Logger, nearbyReader NearbyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		var radius float64 = 50
		var err error
		if v := r.URL.Query().Get("radius"); v != "" {
			radius, err = strconv.ParseFloat(v, 64)
			if err != nil || radius <= 0 {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect radius value"))
				return
			}
		}

		// The origin is optional; without it the actor's registered
		// coordinates are used.
		var origin *dispatch.Coordinates
		latStr := r.URL.Query().Get("latitude")
		lonStr := r.URL.Query().Get("longitude")
		if latStr != "" || lonStr != "" {
			lat, latErr := strconv.ParseFloat(latStr, 64)
			lon, lonErr := strconv.ParseFloat(lonStr, 64)
			if latErr != nil || lonErr != nil {
				render.Status(r, 400)
				render.JSON(w, r, errors.NewHttpError("Incorrect coordinates"))
				return
			}
			origin = &dispatch.Coordinates{Latitude: lat, Longitude: lon}
		}

		resp, err := nearbyReader.Nearby(actor, origin, radius)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJobStatus(log *slog.Logger, jobStatusReader JobStatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := user.ActorFromRequest(r); !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		jobId := chi.URLParam(r, "jobId")
		if jobId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		status, err := jobStatusReader.JobStatus(jobId)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, status)
	}
}

type jobPatchRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	BudgetMin   *float64 `json:"budgetMin"`
	BudgetMax   *float64 `json:"budgetMax"`
}

func NewPatchJob(log *slog.Logger, jobEditor JobEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		jobId := chi.URLParam(r, "jobId")
		if jobId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		var req jobPatchRequest
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error(err.Error())
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError(err.Error()))
			return
		}

		if req.Title == nil && req.Description == nil && req.BudgetMin == nil && req.BudgetMax == nil {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The request body is empty"))
			return
		}

		resp, err := jobEditor.EditJob(jobId, actor, dispatch.JobPatch{
			Title:       req.Title,
			Description: req.Description,
			BudgetMin:   req.BudgetMin,
			BudgetMax:   req.BudgetMax,
		})
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewPutJobCancel(log *slog.Logger, jobCanceller JobCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		jobId := chi.URLParam(r, "jobId")
		if jobId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		resp, err := jobCanceller.Cancel(jobId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewPutJobComplete(log *slog.Logger, jobCompleter JobCompleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		jobId := chi.URLParam(r, "jobId")
		if jobId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The job id is invalid"))
			return
		}

		resp, err := jobCompleter.Complete(jobId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func renderDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case serrors.Is(err, dispatch.ErrInvalidCategory),
		serrors.Is(err, dispatch.ErrOutOfRange),
		serrors.Is(err, dispatch.ErrMissingLocation):
		render.Status(r, 400)
	case serrors.Is(err, dispatch.ErrNotOwner),
		serrors.Is(err, dispatch.ErrForbidden):
		render.Status(r, 403)
	case serrors.Is(err, dispatch.ErrNotFound):
		render.Status(r, 404)
	case serrors.Is(err, dispatch.ErrJobNotOpen),
		serrors.Is(err, dispatch.ErrDuplicateBid),
		serrors.Is(err, dispatch.ErrDuplicateDecision),
		serrors.Is(err, dispatch.ErrNotPending),
		serrors.Is(err, dispatch.ErrBusy):
		render.Status(r, 409)
	default:
		render.Status(r, 400)
	}
	render.JSON(w, r, errors.NewHttpError(err.Error()))
}
