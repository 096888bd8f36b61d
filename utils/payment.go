package utils

import (
	"TicketMarket/collections"
	"TicketMarket/configs"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	vnpayProvider   = "vnpay"
	vnpayTimeFormat = "20060102150405"
	vnpayPaymentTTL = 15 * time.Minute
)

var (
	ErrInvalidSignature = errors.New("vnpay signature mismatch")
	ErrInvalidCallback  = errors.New("vnpay callback is malformed")
)

// VNPay builds signed redirect URLs and verifies IPN callbacks.
type VNPay struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string

	location *time.Location
	now      func() time.Time
}

func NewVNPay() *VNPay {
	return &VNPay{
		TmnCode:    strings.TrimSpace(configs.GetVNPAYTmnCode()),
		HashSecret: strings.TrimSpace(configs.GetVNPAYHashSecret()),
		PayURL:     strings.TrimSpace(configs.GetVNPAYUrl()),
		ReturnURL:  strings.TrimSpace(configs.GetServerDomain()) + "/api/v1/payments/vnpay/return",
	}
}

func (v *VNPay) Name() string {
	return vnpayProvider
}

func (v *VNPay) clock() time.Time {
	now := time.Now
	if v.now != nil {
		now = v.now
	}
	loc := v.location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("Asia/Ho_Chi_Minh"); err != nil {
			loc = time.FixedZone("ICT", 7*3600)
		}
	}
	return now().In(loc)
}

// Amount converts an order total to the provider's integer representation.
func VNPayAmount(total decimal.Decimal) int64 {
	return total.Shift(2).Round(0).IntPart()
}

func (v *VNPay) StartCapture(_ context.Context, order *collections.Order, clientIP string) (string, error) {
	if v.TmnCode == "" || v.HashSecret == "" {
		return "", errors.New("vnpay is not configured")
	}
	if !order.Total.IsPositive() {
		return "", fmt.Errorf("vnpay cannot capture a total of %s", order.Total)
	}

	now := v.clock()
	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", v.TmnCode)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", order.ID.Hex())
	params.Set("vnp_OrderInfo", "Payment for order "+order.ID.Hex())
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Amount", strconv.FormatInt(VNPayAmount(order.Total), 10))
	params.Set("vnp_ReturnUrl", v.ReturnURL)
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_CreateDate", now.Format(vnpayTimeFormat))
	params.Set("vnp_ExpireDate", now.Add(vnpayPaymentTTL).Format(vnpayTimeFormat))

	signed := v.Sign(params)
	logrus.WithField("order_id", order.ID.Hex()).Debug("vnpay payment url built")

	return v.PayURL + "?" + signed.Encode(), nil
}

// Sign drops empty parameters and appends vnp_SecureHash computed over the
// remaining ones in key order.
func (v *VNPay) Sign(params url.Values) url.Values {
	clean := hashable(params)
	signed := url.Values{}
	for k, vals := range clean {
		signed[k] = vals
	}
	signed.Set("vnp_SecureHashType", "SHA512")
	signed.Set("vnp_SecureHash", hmacSha512(v.HashSecret, clean.Encode()))
	return signed
}

func hashable(params url.Values) url.Values {
	clean := url.Values{}
	for k := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		if val := params.Get(k); val != "" {
			clean.Set(k, val)
		}
	}
	return clean
}

func hmacSha512(key, data string) string {
	h := hmac.New(sha512.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VnpayCallback is the verified content of an IPN request.
type VnpayCallback struct {
	OrderID           primitive.ObjectID
	Amount            int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
}

func (c *VnpayCallback) Succeeded() bool {
	return c.ResponseCode == "00" && (c.TransactionStatus == "" || c.TransactionStatus == "00")
}

func (v *VNPay) VerifyIPN(params url.Values) (*VnpayCallback, error) {
	received := params.Get("vnp_SecureHash")
	expected := hmacSha512(v.HashSecret, hashable(params).Encode())
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	orderID, err := primitive.ObjectIDFromHex(params.Get("vnp_TxnRef"))
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_TxnRef %q", ErrInvalidCallback, params.Get("vnp_TxnRef"))
	}
	amount, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: vnp_Amount %q", ErrInvalidCallback, params.Get("vnp_Amount"))
	}

	return &VnpayCallback{
		OrderID:           orderID,
		Amount:            amount,
		ResponseCode:      params.Get("vnp_ResponseCode"),
		TransactionStatus: params.Get("vnp_TransactionStatus"),
		TransactionNo:     params.Get("vnp_TransactionNo"),
	}, nil
}

func ResponsePaymentMessage(code string) string {
	switch code {
	case "00":
		return "Transaction successful"
	case "07":
		return "Amount debited, transaction flagged as suspicious"
	case "09":
		return "Card or account is not registered for internet banking"
	case "10":
		return "Card or account verification failed more than 3 times"
	case "11":
		return "Payment window expired"
	case "12":
		return "Card or account is locked"
	case "13":
		return "Wrong OTP"
	case "24":
		return "Customer cancelled the transaction"
	case "51":
		return "Insufficient balance"
	case "65":
		return "Daily transaction limit exceeded"
	case "75":
		return "Bank under maintenance"
	case "79":
		return "Wrong payment password too many times"
	case "99":
		return "Other error"
	default:
		return "Unknown response code"
	}
}
