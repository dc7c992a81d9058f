package router_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trais-tz/epay/billing"
	"github.com/trais-tz/epay/cmd/epayd/internal/router"
	"github.com/trais-tz/epay/gepg"
	"github.com/trais-tz/epay/reconcile"
)

type fakeGateway struct {
	mu          sync.Mutex
	submissions [][]byte
}

func (f *fakeGateway) Submit(ctx context.Context, envelope []byte) (response []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, envelope)
	return []byte("<Gepg></Gepg>"), nil
}

func testEngine(t *testing.T) (e *gin.Engine) {
	t.Helper()
	assertions := assert.New(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assertions.Nil(err, "failed to generate key")
	signer, err := gepg.NewSigner(key, gepg.DigestSHA1)
	assertions.Nil(err, "failed to create signer")

	options := badger.
		DefaultOptions("").
		WithLoggingLevel(5).
		WithLogger(nil).
		WithInMemory(true)
	db, err := badger.Open(options)
	assertions.Nil(err, "failed to open database")
	t.Cleanup(func() { db.Close() })

	ctrl := reconcile.New(reconcile.Config{
		DB: db,
		Codec: gepg.NewCodec(gepg.CodecConfig{
			SpCode:     "SP19917",
			SubSpCode:  "2001",
			SystemID:   "TTRAB001",
			ApprovedBy: "Registrar",
			Signer:     signer,
		}),
		Client: &fakeGateway{},
		Fees: billing.FeeTable{
			"NOTICE_FILING": {Amount: decimal.NewFromInt(10_000), GfsCode: "140313"},
		},
	})

	gin.SetMode(gin.TestMode)
	e = gin.New()
	r := router.Router{
		ProcessInterval: time.Hour,
		Engine:          ctrl,
		Base:            e,
	}
	r.Register()
	return e
}

func do(e *gin.Engine, method, path, contentType string, body []byte) (w *httptest.ResponseRecorder) {
	w = httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	e.ServeHTTP(w, req)
	return w
}

func Test_Router(t *testing.T) {
	assertions := assert.New(t)

	e := testEngine(t)

	// Create a bill through the API
	create, err := json.Marshal(router.CreateBill{
		PayerName: "Asha Mollel",
		Currency:  "TZS",
		Reference: "APPEAL-2026-001",
		Items:     []router.CreateBillItem{{Category: "NOTICE_FILING"}},
	})
	assertions.Nil(err, "failed to marshal request")

	w := do(e, http.MethodPost, router.BillsPath, "application/json", create)
	assertions.Equal(http.StatusCreated, w.Code, "body: %s", w.Body)

	var bill router.Bill
	assertions.Nil(json.Unmarshal(w.Body.Bytes(), &bill), "failed to unmarshal bill")
	assertions.Len(bill.BillId, billing.BillIDLength)
	assertions.Equal(billing.StatusSubmitted, bill.Status)
	assertions.Equal("10000", bill.Amount)

	// Status endpoint
	w = do(e, http.MethodGet, router.BillsPath+"/"+bill.BillId, "", nil)
	assertions.Equal(http.StatusOK, w.Code)

	w = do(e, http.MethodGet, router.BillsPath+"/unknown1", "", nil)
	assertions.Equal(http.StatusNotFound, w.Code)

	// Registration callback assigns the control number
	registration := fmt.Sprintf(
		`<Gepg><gepgBillSubResp><BillTrxInf><BillId>%s</BillId><TrxSts>GS</TrxSts><PayCntrNum>991234567890</PayCntrNum><TrxStsCode>7101</TrxStsCode></BillTrxInf></gepgBillSubResp><gepgSignature>c2ln</gepgSignature></Gepg>`,
		bill.BillId)
	w = do(e, http.MethodPost, router.RegistrationPath, "application/xml", []byte(registration))
	assertions.Equal(http.StatusOK, w.Code)
	assertions.Equal("application/xml", w.Header().Get("Content-Type"))
	assertions.Contains(w.Body.String(), "<gepgBillSubRespAck><TrxStsCode>7101</TrxStsCode></gepgBillSubRespAck>")

	// Payment callback settles the bill
	payment := fmt.Sprintf(
		`<Gepg><gepgPmtSpInfo><PymtTrxInf><BillId>%s</BillId><PayRefId>99XX1234567</PayRefId><PayCtrNum>991234567890</PayCtrNum><BillAmt>10000</BillAmt><PaidAmt>10000</PaidAmt><TrxDtTm>2026-01-16T09:12:45</TrxDtTm><PspReceiptNumber>CRDB99887766</PspReceiptNumber><PspName>CRDB</PspName><PyrName>Asha Mollel</PyrName></PymtTrxInf></gepgPmtSpInfo><gepgSignature>c2ln</gepgSignature></Gepg>`,
		bill.BillId)
	w = do(e, http.MethodPost, router.PaymentNoticePath, "application/xml", []byte(payment))
	assertions.Equal(http.StatusOK, w.Code)
	assertions.Contains(w.Body.String(), "<gepgPmtSpInfoAck><TrxStsCode>7101</TrxStsCode></gepgPmtSpInfoAck>")

	w = do(e, http.MethodGet, router.BillsPath+"/"+bill.BillId, "", nil)
	assertions.Equal(http.StatusOK, w.Code)
	assertions.Nil(json.Unmarshal(w.Body.Bytes(), &bill), "failed to unmarshal bill")
	assertions.True(bill.Paid)
	assertions.Equal(billing.StatusPaid, bill.Status)

	// Verification and listing
	w = do(e, http.MethodGet, router.PaymentsPath+"/991234567890", "", nil)
	assertions.Equal(http.StatusOK, w.Code)

	var record router.Payment
	assertions.Nil(json.Unmarshal(w.Body.Bytes(), &record), "failed to unmarshal payment")
	assertions.Equal("CRDB99887766", record.TransactionId)
	assertions.Equal(bill.BillId, record.BillId)

	w = do(e, http.MethodGet, router.PaymentsPath, "", nil)
	assertions.Equal(http.StatusOK, w.Code)

	var records []router.Payment
	assertions.Nil(json.Unmarshal(w.Body.Bytes(), &records), "failed to unmarshal payments")
	assertions.Len(records, 1)

	w = do(e, http.MethodGet, router.PaymentsPath+"/000000000000", "", nil)
	assertions.Equal(http.StatusNotFound, w.Code)
}

func Test_RouterRejections(t *testing.T) {
	assertions := assert.New(t)

	e := testEngine(t)

	// Unknown fee category never creates a bill
	create, err := json.Marshal(router.CreateBill{
		PayerName: "Asha Mollel",
		Currency:  "TZS",
		Items:     []router.CreateBillItem{{Category: "BRIBE"}},
	})
	assertions.Nil(err, "failed to marshal request")

	w := do(e, http.MethodPost, router.BillsPath, "application/json", create)
	assertions.Equal(http.StatusUnprocessableEntity, w.Code)

	// No items, no bill
	create, err = json.Marshal(router.CreateBill{PayerName: "Asha Mollel", Currency: "TZS"})
	assertions.Nil(err, "failed to marshal request")

	w = do(e, http.MethodPost, router.BillsPath, "application/json", create)
	assertions.Equal(http.StatusUnprocessableEntity, w.Code)

	// Not even JSON
	w = do(e, http.MethodPost, router.BillsPath, "application/json", []byte("not json"))
	assertions.Equal(http.StatusBadRequest, w.Code)
}
