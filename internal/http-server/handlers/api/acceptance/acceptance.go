package acceptance

import (
	"encoding/json"
	serrors "errors"
	"log/slog"
	"net/http"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/lib/errors"
	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Decider interface {
	Decide(actor user.Actor, req acceptance.AcceptanceRequest) (acceptance.JobAcceptance, error)
}

type JobAcceptancesReader interface {
	JobAcceptances(jobId string, actor user.Actor) ([]acceptance.JobAcceptance, error)
}

type MyAcceptancesReader interface {
	MyAcceptances(actor user.Actor) ([]acceptance.JobAcceptance, error)
}

func NewPostDecision(log *slog.Logger, decider Decider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		var req acceptance.AcceptanceRequest

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

		if !acceptance.ValidDecision(req.Decision) {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The decision is wrong"))
			return
		}

		resp, err := decider.Decide(actor, req)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJobAcceptances(log *slog.Logger, reader JobAcceptancesReader) http.HandlerFunc {
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

		resp, err := reader.JobAcceptances(jobId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetMyAcceptances(log *slog.Logger, reader MyAcceptancesReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		resp, err := reader.MyAcceptances(actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func renderDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case serrors.Is(err, dispatch.ErrInvalidCategory):
		render.Status(r, 400)
	case serrors.Is(err, dispatch.ErrNotOwner),
		serrors.Is(err, dispatch.ErrForbidden):
		render.Status(r, 403)
	case serrors.Is(err, dispatch.ErrNotFound):
		render.Status(r, 404)
	case serrors.Is(err, dispatch.ErrJobNotOpen),
		serrors.Is(err, dispatch.ErrDuplicateDecision),
		serrors.Is(err, dispatch.ErrBusy):
		render.Status(r, 409)
	default:
		render.Status(r, 400)
	}
	render.JSON(w, r, errors.NewHttpError(err.Error()))
}
