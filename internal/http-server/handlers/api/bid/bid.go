package bid

import (
	"encoding/json"
	serrors "errors"
	"log/slog"
	"net/http"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/lib/errors"
	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type BidSubmitter interface {
	SubmitBid(actor user.Actor, req bid.BidRequest) (bid.Bid, error)
}

type MyBidsReader interface {
	MyBids(actor user.Actor) ([]bid.Bid, error)
}

type JobBidsReader interface {
	JobBids(jobId string, actor user.Actor) ([]bid.Bid, error)
}

type BidAccepter interface {
	AcceptBid(bidId string, actor user.Actor) (bid.Bid, error)
}

type BidRejecter interface {
	RejectBid(bidId string, actor user.Actor) (bid.Bid, error)
}

type BidWithdrawer interface {
	WithdrawBid(bidId string, actor user.Actor) (bid.Bid, error)
}

func NewPostBid(log *slog.Logger, bidSubmitter BidSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		var req bid.BidRequest

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

		resp, err := bidSubmitter.SubmitBid(actor, req)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetMyBids(log *slog.Logger, myBidsReader MyBidsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		resp, err := myBidsReader.MyBids(actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewGetJobBids(log *slog.Logger, jobBidsReader JobBidsReader) http.HandlerFunc {
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

		resp, err := jobBidsReader.JobBids(jobId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewPutBidAccept(log *slog.Logger, bidAccepter BidAccepter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		bidId := chi.URLParam(r, "bidId")
		if bidId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		resp, err := bidAccepter.AcceptBid(bidId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewPutBidReject(log *slog.Logger, bidRejecter BidRejecter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		bidId := chi.URLParam(r, "bidId")
		if bidId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		resp, err := bidRejecter.RejectBid(bidId, actor)
		if err != nil {
			renderDispatchError(w, r, err)
			return
		}

		render.JSON(w, r, resp)
	}
}

func NewPutBidWithdraw(log *slog.Logger, bidWithdrawer BidWithdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := user.ActorFromRequest(r)
		if !ok {
			render.Status(r, 401)
			render.JSON(w, r, errors.NewHttpError("Missing or invalid identity"))
			return
		}

		bidId := chi.URLParam(r, "bidId")
		if bidId == "" {
			render.Status(r, 400)
			render.JSON(w, r, errors.NewHttpError("The bid id is invalid"))
			return
		}

		resp, err := bidWithdrawer.WithdrawBid(bidId, actor)
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
		serrors.Is(err, dispatch.ErrOutOfRange):
		render.Status(r, 400)
	case serrors.Is(err, dispatch.ErrNotOwner),
		serrors.Is(err, dispatch.ErrForbidden):
		render.Status(r, 403)
	case serrors.Is(err, dispatch.ErrNotFound):
		render.Status(r, 404)
	case serrors.Is(err, dispatch.ErrJobNotOpen),
		serrors.Is(err, dispatch.ErrDuplicateBid),
		serrors.Is(err, dispatch.ErrNotPending),
		serrors.Is(err, dispatch.ErrBusy):
		render.Status(r, 409)
	default:
		render.Status(r, 400)
	}
	render.JSON(w, r, errors.NewHttpError(err.Error()))
}
