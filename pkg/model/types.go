package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by the usage API and as cache key.
const DateLayout = "2006-01-02"

// ServiceID identifies a broadband service. The API emits it as a JSON number
// in some documents and as a string in others.
type ServiceID string

func (id *ServiceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode service id: %w", err)
		}
		*id = ServiceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode service id: %w", err)
	}
	*id = ServiceID(n.String())
	return nil
}

func (id ServiceID) String() string { return string(id) }

// UsageDay is the download and upload volume for a single calendar day, in megabytes.
type UsageDay struct {
	Date       time.Time `json:"date" yaml:"date"`
	DownloadMB float64   `json:"download_mb" yaml:"download_mb"`
	UploadMB   float64   `json:"upload_mb" yaml:"upload_mb"`
}

// Key returns the YYYY-MM-DD form of the day's date.
func (d UsageDay) Key() string { return d.Date.Format(DateLayout) }

// TotalMB returns combined download and upload.
func (d UsageDay) TotalMB() float64 { return d.DownloadMB + d.UploadMB }

// UsageOverview is the usage summary for a service's current billing period.
// RemainingMB is nil for unmetered plans.
type UsageOverview struct {
	UsedMB        float64  `json:"used_mb" yaml:"used_mb"`
	DownloadedMB  float64  `json:"downloaded_mb" yaml:"downloaded_mb"`
	UploadedMB    float64  `json:"uploaded_mb" yaml:"uploaded_mb"`
	RemainingMB   *float64 `json:"remaining_mb" yaml:"remaining_mb"`
	DaysTotal     int      `json:"days_total" yaml:"days_total"`
	DaysRemaining int      `json:"days_remaining" yaml:"days_remaining"`
	LastUpdated   string   `json:"last_updated" yaml:"last_updated"`
}

// Unmetered reports whether the plan has no data allowance.
func (o *UsageOverview) Unmetered() bool { return o.RemainingMB == nil }

// NBNDetails describes the physical NBN connection of a service.
type NBNDetails struct {
	Product       string    `json:"product" yaml:"product"`
	POI           string    `json:"poi" yaml:"poi"`
	CVCGraphURL   string    `json:"cvc_graph_url" yaml:"cvc_graph_url"`
	DownloadMbps  float64   `json:"download_mbps" yaml:"download_mbps"`
	UploadMbps    float64   `json:"upload_mbps" yaml:"upload_mbps"`
	LastSpeedTest time.Time `json:"last_speed_test" yaml:"last_speed_test"`
}

// Service is a broadband service attached to a customer account.
type Service struct {
	ID          ServiceID  `json:"service_id" yaml:"service_id"`
	Type        string     `json:"type" yaml:"type"`
	Plan        string     `json:"plan" yaml:"plan"`
	Description string     `json:"description" yaml:"description"`
	Connection  NBNDetails `json:"connection" yaml:"connection"`
	NextBill    time.Time  `json:"next_bill" yaml:"next_bill"`
	OpenDate    time.Time  `json:"open_date" yaml:"open_date"`
	RolloverDay int        `json:"rollover_day" yaml:"rollover_day"`
	IPAddresses []string   `json:"ip_addresses" yaml:"ip_addresses"`
	Address     string     `json:"address" yaml:"address"`
}

// OutageCommunicationPrefs holds how the customer wants to hear about outages.
type OutageCommunicationPrefs struct {
	SMS           bool `json:"sms" yaml:"sms"`
	SMSAfterHours bool `json:"sms_after_hours" yaml:"sms_after_hours"`
	Email         bool `json:"email" yaml:"email"`
}

// AccountPermissions lists what the logged in credentials may do.
type AccountPermissions struct {
	CreatePaymentPlan    bool `json:"create_payment_plan" yaml:"create_payment_plan"`
	UpdatePaymentDetails bool `json:"update_payment_details" yaml:"update_payment_details"`
	CreateContact        bool `json:"create_contact" yaml:"create_contact"`
	UpdateContacts       bool `json:"update_contacts" yaml:"update_contacts"`
	UpdateCustomer       bool `json:"update_customer" yaml:"update_customer"`
	ChangePassword       bool `json:"change_password" yaml:"change_password"`
	CreateTickets        bool `json:"create_tickets" yaml:"create_tickets"`
	MakePayment          bool `json:"make_payment" yaml:"make_payment"`
	PurchaseDataBlocks   bool `json:"purchase_data_blocks" yaml:"purchase_data_blocks"`
	CreateOrder          bool `json:"create_order" yaml:"create_order"`
	ViewOrders           bool `json:"view_orders" yaml:"view_orders"`
}

// Customer is the account returned for the current login.
type Customer struct {
	Number        int64                    `json:"customer_number" yaml:"customer_number"`
	BillingName   string                   `json:"billing_name" yaml:"billing_name"`
	BillFormat    int                      `json:"bill_format" yaml:"bill_format"`
	Brand         string                   `json:"brand" yaml:"brand"`
	PostalAddress string                   `json:"postal_address" yaml:"postal_address"`
	OutagePrefs   OutageCommunicationPrefs `json:"outage_prefs" yaml:"outage_prefs"`
	Phone         string                   `json:"phone" yaml:"phone"`
	Emails        []string                 `json:"emails" yaml:"emails"`
	PaymentMethod string                   `json:"payment_method" yaml:"payment_method"`
	Suspended     bool                     `json:"suspended" yaml:"suspended"`
	Balance       float64                  `json:"balance" yaml:"balance"`
	Services      []Service                `json:"services" yaml:"services"`
	Permissions   AccountPermissions       `json:"permissions" yaml:"permissions"`
}

// OverviewSnapshot is an archived UsageOverview.
type OverviewSnapshot struct {
	ID         string        `json:"id" db:"id"`
	ServiceID  ServiceID     `json:"service_id" db:"service_id"`
	Overview   UsageOverview `json:"overview"`
	RecordedAt time.Time     `json:"recorded_at" db:"recorded_at"`
}

// ArchiveFilter selects archived usage days. From is inclusive, To exclusive.
type ArchiveFilter struct {
	ServiceID ServiceID `json:"service_id,omitempty"`
	From      time.Time `json:"from,omitempty"`
	To        time.Time `json:"to,omitempty"`
}

// MonthTotals is the archived usage for one calendar month.
type MonthTotals struct {
	Month      string  `json:"month" yaml:"month"`
	DownloadMB float64 `json:"download_mb" yaml:"download_mb"`
	UploadMB   float64 `json:"upload_mb" yaml:"upload_mb"`
	Days       int64   `json:"days" yaml:"days"`
}

// UsageSummary aggregates archived usage days.
type UsageSummary struct {
	TotalDownloadMB float64       `json:"total_download_mb" yaml:"total_download_mb"`
	TotalUploadMB   float64       `json:"total_upload_mb" yaml:"total_upload_mb"`
	DayCount        int64         `json:"day_count" yaml:"day_count"`
	ByMonth         []MonthTotals `json:"by_month,omitempty" yaml:"by_month,omitempty"`
}

// BillingPeriodBounds returns the start and end of the billing period that
// contains now, for a service whose usage resets on rolloverDay. Start is
// inclusive and end exclusive, both at UTC midnight.
func BillingPeriodBounds(now time.Time, rolloverDay int) (start, end time.Time) {
	now = now.UTC()
	year, month := now.Year(), now.Month()
	if now.Day() < rolloverDay {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	start = periodStart(year, month, rolloverDay)
	next := month + 1
	nextYear := year
	if next > time.December {
		next = time.January
		nextYear++
	}
	end = periodStart(nextYear, next, rolloverDay)
	return start, end
}

// periodStart returns the first day counted against the period that opens in
// month. A rollover day past the end of the month opens the period on the
// 1st of the following month, matching how days are assigned to periods.
func periodStart(year int, month time.Month, rolloverDay int) time.Time {
	if rolloverDay < 1 {
		rolloverDay = 1
	}
	if rolloverDay > DaysIn(year, month) {
		return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, month, rolloverDay, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
