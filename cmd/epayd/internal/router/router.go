package router

import (
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/reconcile"
	"github.com/trais-tz/epay/utils"
)

// Manages the entire setup of the billing service
type Router struct {
	// Interval between background sweeps
	ProcessInterval time.Duration
	// Reconciliation engine
	Engine *reconcile.Controller
	// Base Gin Group to use for routing
	Base gin.IRoutes
}

const (
	BillIdParam  = "billId"
	ControlParam = "controlNumber"

	BillsPath               = "/api/bills"
	BillsPathWithId         = BillsPath + "/:" + BillIdParam
	PaymentsPath            = "/api/payments"
	PaymentsPathWithControl = PaymentsPath + "/:" + ControlParam
	RegistrationPath        = "/api/gepg/registration"
	PaymentNoticePath       = "/api/gepg/payment"
)

func (r *Router) createBill(ctx *gin.Context) {
	var create CreateBill
	err := ctx.BindJSON(&create)
	if err != nil {
		ctx.AbortWithError(http.StatusBadRequest, err)
		return
	}

	req, err := create.ToBilling()
	if err != nil {
		ctx.AbortWithError(http.StatusBadRequest, err)
		return
	}

	bill, err := r.Engine.Create(req)
	switch {
	case errors.Is(err, billing.ErrFeeNotFound), errors.Is(err, billing.ErrNoItems):
		ctx.AbortWithError(http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	err = r.Engine.Submit(ctx, bill.BillID)
	if err != nil {
		// The bill stays pending, the background sweep retries it
		log.Printf("failed to submit bill %s: %v", bill.BillID, err)
	}

	created, err := r.Engine.Bill(bill.BillID)
	if err != nil {
		created = bill
	}
	ctx.JSON(http.StatusCreated, BillFromEngine(&created))
}

func (r *Router) billStatus(ctx *gin.Context) {
	bill, err := r.Engine.Bill(ctx.Param(BillIdParam))
	switch {
	case err == nil:
		out := BillFromEngine(&bill)
		ctx.JSON(http.StatusOK, &out)
	case errors.Is(err, reconcile.ErrBillNotFound):
		ctx.AbortWithError(http.StatusNotFound, err)
	default:
		ctx.AbortWithError(http.StatusInternalServerError, err)
	}
}

func (r *Router) listPayments(ctx *gin.Context) {
	payments, err := r.Engine.Payments()
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	out := make([]Payment, 0, len(payments))
	for index := range payments {
		out = append(out, PaymentFromEngine(&payments[index]))
	}
	ctx.JSON(http.StatusOK, out)
}

func (r *Router) verifyPayment(ctx *gin.Context) {
	payment, err := r.Engine.PaymentByControlNumber(ctx.Param(ControlParam))
	switch {
	case err == nil:
		out := PaymentFromEngine(&payment)
		ctx.JSON(http.StatusOK, &out)
	case errors.Is(err, reconcile.ErrPaymentNotFound):
		ctx.AbortWithError(http.StatusNotFound, err)
	default:
		ctx.AbortWithError(http.StatusInternalServerError, err)
	}
}

func (r *Router) receiveRegistration(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.AbortWithError(http.StatusBadRequest, err)
		return
	}

	ack, err := r.Engine.ReceiveRegistration(raw)
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	ctx.Data(http.StatusOK, "application/xml", ack)
}

func (r *Router) receivePayment(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.AbortWithError(http.StatusBadRequest, err)
		return
	}

	ack, err := r.Engine.ReceivePayment(raw)
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	ctx.Data(http.StatusOK, "application/xml", ack)
}

// Register routes in the Gin engine
func (r *Router) Register() {
	r.Base.POST(BillsPath, r.createBill)
	r.Base.GET(BillsPathWithId, r.billStatus)
	r.Base.GET(PaymentsPath, r.listPayments)
	r.Base.GET(PaymentsPathWithControl, r.verifyPayment)
	r.Base.POST(RegistrationPath, r.receiveRegistration)
	r.Base.POST(PaymentNoticePath, r.receivePayment)

	go func() {
		ticker := time.NewTicker(r.ProcessInterval)
		defer ticker.Stop()

		for {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				processed, err := r.Engine.ProcessExpiredBills()
				if err != nil {
					log.Println("ERROR|PROCESSING|EXPIRY", err)
				}
				log.Println("INFO|PROCESSED|EXPIRY", processed)
			}()
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := utils.NewContext()
				defer cancel()

				processed, err := r.Engine.ProcessPendingSubmissions(ctx)
				if err != nil {
					log.Println("ERROR|PROCESSING|SUBMISSIONS", err)
				}
				log.Println("INFO|PROCESSED|SUBMISSIONS", processed)
			}()
			wg.Wait()
			<-ticker.C
		}
	}()
}
