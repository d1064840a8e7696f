package dispatch_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"
	"mistribazar/internal/storage/memory"
)

func newRouter(t *testing.T) (*dispatch.Router, *memory.Storage) {
	t.Helper()
	store := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return dispatch.New(log, store), store
}

var (
	poster  = user.Actor{Id: "consumer-1", Role: user.RoleConsumer}
	poster2 = user.Actor{Id: "consumer-2", Role: user.RoleConsumer}
	builder = user.Actor{Id: "contractor-1", Role: user.RoleContractor}
	trader  = user.Actor{Id: "trader-1", Role: user.RoleTrader}
	worker  = user.Actor{Id: "mistri-1", Role: user.RoleMistri}
	worker2 = user.Actor{Id: "mistri-2", Role: user.RoleMistri}
)

func postProject(t *testing.T, rt *dispatch.Router, min, max float64) job.Job {
	t.Helper()
	j, err := rt.CreateJob(poster, job.JobRequest{
		Category:    job.CategoryProject,
		JobType:     job.TypeConstruction,
		Title:       "two-storey house",
		Description: "full construction from foundation",
		BudgetMin:   min,
		BudgetMax:   max,
		Address:     "Sector 12",
		Latitude:    28.6139,
		Longitude:   77.209,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

func postDirectJob(t *testing.T, rt *dispatch.Router) job.Job {
	t.Helper()
	j, err := rt.CreateJob(poster, job.JobRequest{
		Category:    job.CategoryJob,
		JobType:     job.TypeRepair,
		Title:       "fix leaking tap",
		Description: "kitchen tap dripping",
		BudgetMin:   200,
		BudgetMax:   800,
		Address:     "Sector 12",
		Latitude:    28.6139,
		Longitude:   77.209,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

func TestCreateJobValidation(t *testing.T) {
	rt, _ := newRouter(t)

	cases := []struct {
		name string
		act  user.Actor
		req  job.JobRequest
		want error
	}{
		{
			name: "provider cannot post",
			act:  builder,
			req:  job.JobRequest{Category: job.CategoryProject, JobType: job.TypeConstruction, BudgetMin: 1, BudgetMax: 2},
			want: dispatch.ErrForbidden,
		},
		{
			name: "construction type under JOB category",
			act:  poster,
			req:  job.JobRequest{Category: job.CategoryJob, JobType: job.TypeConstruction, BudgetMin: 1, BudgetMax: 2},
			want: dispatch.ErrInvalidCategory,
		},
		{
			name: "repair type under PROJECT category",
			act:  poster,
			req:  job.JobRequest{Category: job.CategoryProject, JobType: job.TypeRepair, BudgetMin: 1, BudgetMax: 2},
			want: dispatch.ErrInvalidCategory,
		},
		{
			name: "budget max not above min",
			act:  poster,
			req:  job.JobRequest{Category: job.CategoryProject, JobType: job.TypeConstruction, BudgetMin: 100, BudgetMax: 100},
			want: dispatch.ErrOutOfRange,
		},
		{
			name: "negative budget",
			act:  poster,
			req:  job.JobRequest{Category: job.CategoryProject, JobType: job.TypeConstruction, BudgetMin: -5, BudgetMax: 10},
			want: dispatch.ErrOutOfRange,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rt.CreateJob(tc.act, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBidAcceptFlow(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30, Message: "can start monday"})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if b.Status != bid.StatusPending {
		t.Fatalf("new bid status = %s, want PENDING", b.Status)
	}

	accepted, err := rt.AcceptBid(b.Id, poster)
	if err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}
	if accepted.Status != bid.StatusAccepted {
		t.Errorf("bid status = %s, want ACCEPTED", accepted.Status)
	}

	status, err := rt.JobStatus(j.Id)
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if status != job.StatusInProgress {
		t.Errorf("job status = %s, want IN_PROGRESS", status)
	}
}

func TestAcceptCascadesRejection(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b1, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid builder: %v", err)
	}
	b2, err := rt.SubmitBid(trader, bid.BidRequest{JobId: j.Id, Amount: 55000, EstimatedDays: 25})
	if err != nil {
		t.Fatalf("SubmitBid trader: %v", err)
	}

	if _, err := rt.AcceptBid(b1.Id, poster); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	bids, err := rt.JobBids(j.Id, poster)
	if err != nil {
		t.Fatalf("JobBids: %v", err)
	}
	accepted := 0
	for _, b := range bids {
		switch b.Id {
		case b1.Id:
			if b.Status != bid.StatusAccepted {
				t.Errorf("winner status = %s, want ACCEPTED", b.Status)
			}
		case b2.Id:
			if b.Status != bid.StatusRejected {
				t.Errorf("loser status = %s, want REJECTED", b.Status)
			}
		}
		if b.Status == bid.StatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("accepted bids = %d, want exactly 1", accepted)
	}
}

func TestBidOutOfRange(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	_, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 90000, EstimatedDays: 30})
	if !errors.Is(err, dispatch.ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}

	bids, err := rt.JobBids(j.Id, poster)
	if err != nil {
		t.Fatalf("JobBids: %v", err)
	}
	if len(bids) != 0 {
		t.Errorf("bid record was created on a failed submit")
	}
}

func TestBidOutOfRangeOnClosedJob(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)
	if _, err := rt.Cancel(j.Id, poster); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// Out-of-range wins over the closed-job failure regardless of status.
	_, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 90000, EstimatedDays: 30})
	if !errors.Is(err, dispatch.ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
}

func TestDuplicateBid(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	if _, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30}); err != nil {
		t.Fatalf("first SubmitBid: %v", err)
	}
	_, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 55000, EstimatedDays: 20})
	if !errors.Is(err, dispatch.ErrDuplicateBid) {
		t.Fatalf("got %v, want ErrDuplicateBid", err)
	}
}

func TestWithdrawAllowsResubmission(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}

	if _, err := rt.WithdrawBid(b.Id, trader); !errors.Is(err, dispatch.ErrForbidden) {
		t.Fatalf("foreign withdraw: got %v, want ErrForbidden", err)
	}

	w, err := rt.WithdrawBid(b.Id, builder)
	if err != nil {
		t.Fatalf("WithdrawBid: %v", err)
	}
	if w.Status != bid.StatusWithdrawn {
		t.Errorf("status = %s, want WITHDRAWN", w.Status)
	}

	if _, err := rt.WithdrawBid(b.Id, builder); !errors.Is(err, dispatch.ErrNotPending) {
		t.Fatalf("double withdraw: got %v, want ErrNotPending", err)
	}

	// A withdrawn bid no longer blocks a fresh one from the same bidder.
	if _, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 58000, EstimatedDays: 28}); err != nil {
		t.Fatalf("resubmit after withdraw: %v", err)
	}
}

func TestBidAuthorization(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	if _, err := rt.SubmitBid(worker, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 10}); !errors.Is(err, dispatch.ErrForbidden) {
		t.Fatalf("mistri bid on PROJECT: got %v, want ErrForbidden", err)
	}
	if _, err := rt.SubmitBid(poster, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 10}); !errors.Is(err, dispatch.ErrForbidden) {
		t.Fatalf("self-dealing poster bid: got %v, want ErrForbidden", err)
	}

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 10})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if _, err := rt.AcceptBid(b.Id, poster2); !errors.Is(err, dispatch.ErrNotOwner) {
		t.Fatalf("foreign accept: got %v, want ErrNotOwner", err)
	}
	if _, err := rt.RejectBid(b.Id, poster2); !errors.Is(err, dispatch.ErrNotOwner) {
		t.Fatalf("foreign reject: got %v, want ErrNotOwner", err)
	}
}

func TestRejectLeavesJobOpen(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	rejected, err := rt.RejectBid(b.Id, poster)
	if err != nil {
		t.Fatalf("RejectBid: %v", err)
	}
	if rejected.Status != bid.StatusRejected {
		t.Errorf("status = %s, want REJECTED", rejected.Status)
	}

	status, _ := rt.JobStatus(j.Id)
	if status != job.StatusOpen {
		t.Errorf("job status = %s, want OPEN", status)
	}

	if _, err := rt.AcceptBid(b.Id, poster); !errors.Is(err, dispatch.ErrNotPending) {
		t.Fatalf("accept of rejected bid: got %v, want ErrNotPending", err)
	}
}

func TestBidOnDirectJobCategory(t *testing.T) {
	rt, _ := newRouter(t)
	j := postDirectJob(t, rt)

	_, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 500, EstimatedDays: 1})
	if !errors.Is(err, dispatch.ErrInvalidCategory) {
		t.Fatalf("got %v, want ErrInvalidCategory", err)
	}
}

func TestBidAfterDispatchFails(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if _, err := rt.AcceptBid(b.Id, poster); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	_, err = rt.SubmitBid(trader, bid.BidRequest{JobId: j.Id, Amount: 55000, EstimatedDays: 20})
	if !errors.Is(err, dispatch.ErrJobNotOpen) {
		t.Fatalf("got %v, want ErrJobNotOpen", err)
	}
}

func TestDirectDispatchFirstAcceptorWins(t *testing.T) {
	rt, _ := newRouter(t)
	j := postDirectJob(t, rt)

	a, err := rt.Decide(worker, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted, Note: "on my way"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if a.Status != acceptance.DecisionAccepted {
		t.Errorf("status = %s, want ACCEPTED", a.Status)
	}

	status, _ := rt.JobStatus(j.Id)
	if status != job.StatusInProgress {
		t.Errorf("job status = %s, want IN_PROGRESS", status)
	}

	_, err = rt.Decide(worker2, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted})
	if !errors.Is(err, dispatch.ErrJobNotOpen) {
		t.Fatalf("late acceptor: got %v, want ErrJobNotOpen", err)
	}
}

func TestDirectRejectLeavesJobOpen(t *testing.T) {
	rt, _ := newRouter(t)
	j := postDirectJob(t, rt)

	if _, err := rt.Decide(worker, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionRejected, Note: "too far"}); err != nil {
		t.Fatalf("Decide reject: %v", err)
	}

	status, _ := rt.JobStatus(j.Id)
	if status != job.StatusOpen {
		t.Errorf("job status = %s, want OPEN", status)
	}

	// One decision per worker per job, rejection included.
	_, err := rt.Decide(worker, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted})
	if !errors.Is(err, dispatch.ErrDuplicateDecision) {
		t.Fatalf("resubmission: got %v, want ErrDuplicateDecision", err)
	}

	// Another worker can still take the job.
	if _, err := rt.Decide(worker2, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted}); err != nil {
		t.Fatalf("second worker accept: %v", err)
	}
}

func TestDecideOnProjectCategory(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	_, err := rt.Decide(worker, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted})
	if !errors.Is(err, dispatch.ErrInvalidCategory) {
		t.Fatalf("got %v, want ErrInvalidCategory", err)
	}
}

func TestConcurrentDirectAccept(t *testing.T) {
	rt, _ := newRouter(t)
	j := postDirectJob(t, rt)

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := user.Actor{Id: "mistri-race-" + string(rune('a'+i)), Role: user.RoleMistri}
			_, errs[i] = rt.Decide(actor, acceptance.AcceptanceRequest{JobId: j.Id, Decision: acceptance.DecisionAccepted})
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, dispatch.ErrJobNotOpen):
		default:
			t.Errorf("worker %d: unexpected error %v", i, err)
		}
	}
	if won != 1 {
		t.Fatalf("winners = %d, want exactly 1", won)
	}

	acc, err := rt.JobAcceptances(j.Id, poster)
	if err != nil {
		t.Fatalf("JobAcceptances: %v", err)
	}
	accepted := 0
	for _, a := range acc {
		if a.Status == acceptance.DecisionAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Errorf("ACCEPTED records = %d, want exactly 1", accepted)
	}
}

func TestCancelRules(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	if _, err := rt.Cancel(j.Id, poster2); !errors.Is(err, dispatch.ErrNotOwner) {
		t.Fatalf("foreign cancel: got %v, want ErrNotOwner", err)
	}

	cancelled, err := rt.Cancel(j.Id, poster)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != job.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// Terminal: no way back out, and no new proposals.
	if _, err := rt.Cancel(j.Id, poster); !errors.Is(err, dispatch.ErrJobNotOpen) {
		t.Fatalf("double cancel: got %v, want ErrJobNotOpen", err)
	}
}

func TestCancelInProgressFails(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if _, err := rt.AcceptBid(b.Id, poster); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	if _, err := rt.Cancel(j.Id, poster); !errors.Is(err, dispatch.ErrJobNotOpen) {
		t.Fatalf("cancel of IN_PROGRESS job: got %v, want ErrJobNotOpen", err)
	}
}

func TestCompleteRules(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	if _, err := rt.Complete(j.Id, poster); !errors.Is(err, dispatch.ErrJobNotOpen) {
		t.Fatalf("complete of OPEN job: got %v, want ErrJobNotOpen", err)
	}

	b, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30})
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if _, err := rt.AcceptBid(b.Id, poster); err != nil {
		t.Fatalf("AcceptBid: %v", err)
	}

	if _, err := rt.Complete(j.Id, poster2); !errors.Is(err, dispatch.ErrNotOwner) {
		t.Fatalf("foreign complete: got %v, want ErrNotOwner", err)
	}

	done, err := rt.Complete(j.Id, poster)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != job.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", done.Status)
	}
}

func TestBudgetFreezesOnceBidExists(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	newMax := 70000.0
	if _, err := rt.EditJob(j.Id, poster, dispatch.JobPatch{BudgetMax: &newMax}); err != nil {
		t.Fatalf("budget edit before bids: %v", err)
	}

	if _, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30}); err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}

	lower := 65000.0
	_, err := rt.EditJob(j.Id, poster, dispatch.JobPatch{BudgetMax: &lower})
	if !errors.Is(err, dispatch.ErrForbidden) {
		t.Fatalf("budget edit with active bid: got %v, want ErrForbidden", err)
	}

	// Non-budget fields stay editable.
	title := "two-storey house, urgent"
	updated, err := rt.EditJob(j.Id, poster, dispatch.JobPatch{Title: &title})
	if err != nil {
		t.Fatalf("title edit: %v", err)
	}
	if updated.Title != title {
		t.Errorf("title = %q, want %q", updated.Title, title)
	}
}

func TestListingsVisibility(t *testing.T) {
	rt, _ := newRouter(t)
	j := postProject(t, rt, 50000, 80000)

	if _, err := rt.SubmitBid(builder, bid.BidRequest{JobId: j.Id, Amount: 60000, EstimatedDays: 30}); err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}

	if _, err := rt.JobBids(j.Id, builder); !errors.Is(err, dispatch.ErrNotOwner) {
		t.Fatalf("bidder reading full bid list: got %v, want ErrNotOwner", err)
	}

	mine, err := rt.MyBids(builder)
	if err != nil {
		t.Fatalf("MyBids: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("own bids = %d, want 1", len(mine))
	}

	jobs, err := rt.MyJobs(poster)
	if err != nil {
		t.Fatalf("MyJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("own jobs = %d, want 1", len(jobs))
	}
}
