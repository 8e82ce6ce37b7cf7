package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// text decodes a JSON string or number into a string. Postcodes and street
// numbers arrive as either.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

type customerDocument struct {
	CustomerNumber int64  `json:"customer_number"`
	BillingName    string `json:"billing_name"`
	BillFormat     int    `json:"billformat"`
	Brand          string `json:"brand"`
	PostalAddress  struct {
		Address  string `json:"address"`
		Town     string `json:"town"`
		State    string `json:"state"`
		Postcode text   `json:"postcode"`
	} `json:"postalAddress"`
	CommunicationPreferences struct {
		Outages struct {
			SMS    bool `json:"sms"`
			SMS247 bool `json:"sms247"`
			Email  bool `json:"email"`
		} `json:"outages"`
	} `json:"communicationPreferences"`
	Phone               string   `json:"phone"`
	Email               []string `json:"email"`
	PaymentMethod       string   `json:"payment_method"`
	IsSuspended         bool     `json:"isSuspended"`
	AccountBalanceCents int64    `json:"accountBalanceCents"`
	Services            struct {
		NBN []serviceDocument `json:"NBN"`
	} `json:"services"`
	Permissions permissionsDocument `json:"permissions"`
}

type serviceDocument struct {
	ServiceID   model.ServiceID `json:"service_id"`
	Plan        string          `json:"plan"`
	Description string          `json:"description"`
	NBNDetails  struct {
		Product        string `json:"product"`
		POIName        string `json:"poiName"`
		CVCGraph       string `json:"cvcGraph"`
		SpeedPotential struct {
			DownloadMbps float64 `json:"downloadMbps"`
			UploadMbps   float64 `json:"uploadMbps"`
			LastTested   string  `json:"lastTested"`
		} `json:"speedPotential"`
	} `json:"nbnDetails"`
	NextBillDate     string   `json:"nextBillDate"`
	OpenDate         string   `json:"openDate"`
	UsageAnniversary int      `json:"usageAnniversary"`
	IPAddresses      []string `json:"ipAddresses"`
	Address          struct {
		SubAddressType   text `json:"subaddresstype"`
		SubAddressNumber text `json:"subaddressnumber"`
		StreetNumber     text `json:"streetnumber"`
		StreetName       text `json:"streetname"`
		StreetType       text `json:"streettype"`
		Locality         text `json:"locality"`
		State            text `json:"state"`
		Postcode         text `json:"postcode"`
	} `json:"address"`
}

type permissionsDocument struct {
	CreatePaymentPlan          bool `json:"createPaymentPlan"`
	UpdatePaymentDetails       bool `json:"updatePaymentDetails"`
	CreateContact              bool `json:"createContact"`
	UpdateContacts             bool `json:"updateContacts"`
	UpdateCustomer             bool `json:"updateCustomer"`
	ChangePassword             bool `json:"changePassword"`
	CreateTickets              bool `json:"createTickets"`
	MakePayment                bool `json:"makePayment"`
	PurchaseDatablocksNextBill bool `json:"purchaseDatablocksNextBill"`
	CreateOrder                bool `json:"createOrder"`
	ViewOrders                 bool `json:"viewOrders"`
}

type overviewDocument struct {
	UsedMb        float64  `json:"usedMb"`
	DownloadedMb  float64  `json:"downloadedMb"`
	UploadedMb    float64  `json:"uploadedMb"`
	RemainingMb   *float64 `json:"remainingMb"`
	DaysTotal     int      `json:"daysTotal"`
	DaysRemaining int      `json:"daysRemaining"`
	LastUpdated   string   `json:"lastUpdated"`
}

// Customer fetches the account details for the logged in user.
func (c *Client) Customer(ctx context.Context) (*model.Customer, error) {
	var doc customerDocument
	if err := c.Get(ctx, "customer", &doc); err != nil {
		return nil, err
	}
	return doc.toModel()
}

// UsageOverview fetches the current billing period summary for a service.
func (c *Client) UsageOverview(ctx context.Context, id model.ServiceID) (*model.UsageOverview, error) {
	var doc overviewDocument
	if err := c.Get(ctx, "broadband/"+string(id)+"/usage", &doc); err != nil {
		return nil, err
	}
	return &model.UsageOverview{
		UsedMB:        doc.UsedMb,
		DownloadedMB:  doc.DownloadedMb,
		UploadedMB:    doc.UploadedMb,
		RemainingMB:   doc.RemainingMb,
		DaysTotal:     doc.DaysTotal,
		DaysRemaining: doc.DaysRemaining,
		LastUpdated:   doc.LastUpdated,
	}, nil
}

func (d *customerDocument) toModel() (*model.Customer, error) {
	services := make([]model.Service, 0, len(d.Services.NBN))
	for _, s := range d.Services.NBN {
		svc, err := s.toModel()
		if err != nil {
			return nil, fmt.Errorf("populate service %s: %w", s.ServiceID, err)
		}
		services = append(services, svc)
	}

	p := d.Permissions
	return &model.Customer{
		Number:      d.CustomerNumber,
		BillingName: d.BillingName,
		BillFormat:  d.BillFormat,
		Brand:       d.Brand,
		PostalAddress: fmt.Sprintf("%s, %s %s %s",
			d.PostalAddress.Address, d.PostalAddress.Town, d.PostalAddress.State, d.PostalAddress.Postcode),
		OutagePrefs: model.OutageCommunicationPrefs{
			SMS:           d.CommunicationPreferences.Outages.SMS,
			SMSAfterHours: d.CommunicationPreferences.Outages.SMS247,
			Email:         d.CommunicationPreferences.Outages.Email,
		},
		Phone:         d.Phone,
		Emails:        d.Email,
		PaymentMethod: d.PaymentMethod,
		Suspended:     d.IsSuspended,
		Balance:       float64(d.AccountBalanceCents) / 100,
		Services:      services,
		Permissions: model.AccountPermissions{
			CreatePaymentPlan:    p.CreatePaymentPlan,
			UpdatePaymentDetails: p.UpdatePaymentDetails,
			CreateContact:        p.CreateContact,
			UpdateContacts:       p.UpdateContacts,
			UpdateCustomer:       p.UpdateCustomer,
			ChangePassword:       p.ChangePassword,
			CreateTickets:        p.CreateTickets,
			MakePayment:          p.MakePayment,
			PurchaseDataBlocks:   p.PurchaseDatablocksNextBill,
			CreateOrder:          p.CreateOrder,
			ViewOrders:           p.ViewOrders,
		},
	}, nil
}

func (s *serviceDocument) toModel() (model.Service, error) {
	if s.UsageAnniversary < 1 || s.UsageAnniversary > 31 {
		return model.Service{}, fmt.Errorf("usage anniversary %d out of range", s.UsageAnniversary)
	}

	lastTested, err := parseOptionalTime(timestampLayout, s.NBNDetails.SpeedPotential.LastTested)
	if err != nil {
		return model.Service{}, fmt.Errorf("last tested: %w", err)
	}
	nextBill, err := parseOptionalTime(timestampLayout, s.NextBillDate)
	if err != nil {
		return model.Service{}, fmt.Errorf("next bill date: %w", err)
	}
	openDate, err := parseOptionalTime(dateLayout, s.OpenDate)
	if err != nil {
		return model.Service{}, fmt.Errorf("open date: %w", err)
	}

	return model.Service{
		ID:          s.ServiceID,
		Type:        "NBN",
		Plan:        s.Plan,
		Description: s.Description,
		Connection: model.NBNDetails{
			Product:       s.NBNDetails.Product,
			POI:           s.NBNDetails.POIName,
			CVCGraphURL:   s.NBNDetails.CVCGraph,
			DownloadMbps:  s.NBNDetails.SpeedPotential.DownloadMbps,
			UploadMbps:    s.NBNDetails.SpeedPotential.UploadMbps,
			LastSpeedTest: lastTested,
		},
		NextBill:    nextBill,
		OpenDate:    openDate,
		RolloverDay: s.UsageAnniversary,
		IPAddresses: s.IPAddresses,
		Address:     s.formatAddress(),
	}, nil
}

func (s *serviceDocument) formatAddress() string {
	a := s.Address
	addr := fmt.Sprintf("%s %s %s, %s %s %s",
		a.StreetNumber, a.StreetName, a.StreetType, a.Locality, a.State, a.Postcode)
	if a.SubAddressType != "" && a.SubAddressNumber != "" {
		addr = fmt.Sprintf("%s %s, %s", a.SubAddressType, a.SubAddressNumber, addr)
	}
	return strings.TrimSpace(addr)
}

func parseOptionalTime(layout, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(layout, value)
}
