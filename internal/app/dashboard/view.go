package dashboard

import (
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/the-holiday/member-portal-api/internal/domain"
)

const (
	currencySymbol   = "৳"
	planPeriodSuffix = "/year"
	validUntilLayout = "January 2, 2006"
	// Plan option cards list at most this many benefits.
	planOptionBenefits = 4
	// Index of the plan option flagged as popular.
	popularPlanIndex = 1
)

type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type CurrentPlan struct {
	ID          domain.PlanID `json:"id"`
	Title       string        `json:"title"`
	Badge       string        `json:"badge"`
	Description string        `json:"description"`
	Benefits    []string      `json:"benefits"`
	ValidUntil  string        `json:"validUntil,omitempty"`
}

type PlanOption struct {
	ID          domain.PlanID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       string        `json:"price"`
	Period      string        `json:"period"`
	Benefits    []string      `json:"benefits"`
	Popular     bool          `json:"popular"`
}

type QuickAction struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// View is the rendered dashboard.
type View struct {
	Loading      bool          `json:"loading"`
	WelcomeName  string        `json:"welcomeName"`
	MemberID     string        `json:"memberId"`
	Stats        []Stat        `json:"stats"`
	SectionTitle string        `json:"sectionTitle"`
	CurrentPlan  *CurrentPlan  `json:"currentPlan,omitempty"`
	PlanOptions  []PlanOption  `json:"planOptions,omitempty"`
	QuickActions []QuickAction `json:"quickActions"`
}

var quickActions = []QuickAction{
	{Label: "Book a Trip", Description: "Browse destinations"},
	{Label: "View Offers", Description: "Exclusive member deals"},
	{Label: "Booking History", Description: "Past transactions"},
	{Label: "Edit Profile", Description: "Update your info"},
}

// Render projects a dashboard state into its view. A missing profile renders
// zero-valued stats and the plan selection.
func Render(st State) View {
	if st.Loading {
		return View{Loading: true}
	}

	var (
		fullName, memberID string
		spent, savings     float64
		trips              int
		planEnd            *time.Time
	)
	if p := st.Profile; p != nil {
		fullName = p.FullName
		if p.MemberID != nil {
			memberID = *p.MemberID
		}
		spent, savings, trips = p.TotalSpent, p.TotalSavings, p.TotalTrips
		planEnd = p.PlanEndDate
	}

	v := View{
		WelcomeName: orDefault(fullName, "Member"),
		MemberID:    orDefault(memberID, "N/A"),
		Stats: []Stat{
			{Label: "Total Savings", Value: FormatAmount(savings)},
			{Label: "Total Spent", Value: FormatAmount(spent)},
			{Label: "Total Trips", Value: strconv.Itoa(trips)},
			{Label: "Member Status", Value: "Free"},
		},
		QuickActions: append([]QuickAction(nil), quickActions...),
	}

	if plan := st.Plan; plan != nil {
		v.Stats[3].Value = orDefault(plan.Name, "Free")
		v.SectionTitle = "Your Membership Benefits"
		cp := &CurrentPlan{
			ID:          plan.ID,
			Title:       plan.Name + " Plan",
			Badge:       plan.Name + " Member",
			Description: plan.Description,
			Benefits:    nonNil(plan.Benefits),
		}
		if planEnd != nil {
			cp.ValidUntil = planEnd.UTC().Format(validUntilLayout)
		}
		v.CurrentPlan = cp
		return v
	}

	v.SectionTitle = "Choose a Membership Plan"
	v.PlanOptions = make([]PlanOption, 0, len(st.Plans))
	for i, p := range st.Plans {
		benefits := nonNil(p.Benefits)
		if len(benefits) > planOptionBenefits {
			benefits = benefits[:planOptionBenefits]
		}
		v.PlanOptions = append(v.PlanOptions, PlanOption{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       FormatAmount(p.Price),
			Period:      planPeriodSuffix,
			Benefits:    benefits,
			Popular:     i == popularPlanIndex,
		})
	}
	return v
}

// FormatAmount renders a taka amount with thousands grouping, e.g. ৳125,000.5.
func FormatAmount(v float64) string {
	p := message.NewPrinter(language.English)
	return currencySymbol + p.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
