package categorize

// Budget category names produced by the classifier outside of the tables.
const (
	CategoryIncome       = "Income"
	CategoryETransfersIn = "E-Transfers In"
	CategoryTransfers    = "Transfers"
	CategoryOther        = "Other"
)

// rule maps a substring pattern to a budget category.
type rule struct {
	Pattern  string
	Category string
}

// merchantOverrides are checked first, against both merchant and name.
// Order matters: the first containing pattern wins.
var merchantOverrides = []rule{
	// Money in
	{"INTERAC E-TRANSFER", CategoryETransfersIn},
	{"E-TRANSFER", CategoryETransfersIn},
	{"PAYROLL", CategoryIncome},
	{"DIRECT DEP", CategoryIncome},

	// Subscriptions
	{"NETFLIX", "Subscriptions"},
	{"SPOTIFY", "Subscriptions"},
	{"DISNEY PLUS", "Subscriptions"},
	{"AMAZON PRIME", "Subscriptions"},
	{"APPLE.COM/BILL", "Subscriptions"},
	{"GOOGLE *", "Subscriptions"},
	{"YOUTUBE PREMIUM", "Subscriptions"},

	// Food
	{"UBER EATS", "Dining Out"},
	{"DOORDASH", "Dining Out"},
	{"SKIP THE DISHES", "Dining Out"},
	{"TIM HORTONS", "Coffee & Snacks"},
	{"STARBUCKS", "Coffee & Snacks"},
	{"COSTCO", "Groceries"},
	{"WALMART", "Groceries"},
	{"LOBLAWS", "Groceries"},
	{"NO FRILLS", "Groceries"},
	{"METRO", "Groceries"},

	// Transportation
	{"PRESTO", "Transit"},
	{"TTC", "Transit"},
	{"UBER TRIP", "Transit"},
	{"LYFT", "Transit"},
	{"ESSO", "Gas"},
	{"PETRO-CANADA", "Gas"},
	{"SHELL", "Gas"},

	// Everything else
	{"CANADIAN TIRE", "Home"},
	{"REXALL", "Health"},
	{"SHOPPERS DRUG", "Health"},
	{"WINNERS", "Clothing"},
	{"GYM", "Fitness"},
	{"GOODLIFE", "Fitness"},
}

// taxonomy maps aggregator detailed categories to budget categories.
var taxonomy = []rule{
	// Housing
	{"RENT_AND_UTILITIES_RENT", "Rent/Mortgage"},
	{"RENT_AND_UTILITIES_GAS_AND_ELECTRICITY", "Utilities"},
	{"RENT_AND_UTILITIES_WATER", "Utilities"},
	{"RENT_AND_UTILITIES_SEWAGE_AND_WASTE_MANAGEMENT", "Utilities"},
	{"RENT_AND_UTILITIES_TELEPHONE", "Phone & Internet"},
	{"RENT_AND_UTILITIES_INTERNET_AND_CABLE", "Phone & Internet"},
	{"HOME_IMPROVEMENT_FURNITURE", "Home"},
	{"HOME_IMPROVEMENT_HARDWARE", "Home"},

	// Transportation
	{"TRANSPORTATION_PUBLIC_TRANSIT", "Transit"},
	{"TRANSPORTATION_TAXIS_AND_RIDE_SHARES", "Transit"},
	{"TRANSPORTATION_GAS_STATIONS", "Gas"},
	{"TRANSPORTATION_PARKING", "Parking"},
	{"TRANSPORTATION_CAR_SERVICE", "Car Maintenance"},
	{"TRANSPORTATION_CAR_DEALERS_AND_LEASING", "Car Payment"},

	// Food
	{"FOOD_AND_DRINK_GROCERIES", "Groceries"},
	{"FOOD_AND_DRINK_RESTAURANTS", "Dining Out"},
	{"FOOD_AND_DRINK_COFFEE", "Coffee & Snacks"},
	{"FOOD_AND_DRINK_FAST_FOOD", "Dining Out"},
	{"FOOD_AND_DRINK_BEER_WINE_AND_LIQUOR", "Alcohol"},

	// Shopping
	{"GENERAL_MERCHANDISE_CLOTHING_AND_ACCESSORIES", "Clothing"},
	{"GENERAL_MERCHANDISE_ELECTRONICS", "Electronics"},
	{"GENERAL_MERCHANDISE_DEPARTMENT_STORES", "Shopping"},
	{"GENERAL_MERCHANDISE_ONLINE_MARKETPLACES", "Shopping"},
	{"GENERAL_MERCHANDISE_SUPERSTORES", "Shopping"},
	{"GENERAL_MERCHANDISE_GIFTS_AND_NOVELTIES", "Shopping"},

	// Health
	{"MEDICAL_DENTIST", "Health"},
	{"MEDICAL_PHARMACIES_AND_SUPPLEMENTS", "Health"},
	{"MEDICAL_EYE_CARE", "Health"},
	{"MEDICAL_VETERINARY_SERVICES", "Pets"},

	// Entertainment
	{"ENTERTAINMENT_MOVIES_AND_DVDS", "Entertainment"},
	{"ENTERTAINMENT_MUSIC_AND_AUDIO", "Subscriptions"},
	{"ENTERTAINMENT_SPORTING_EVENTS", "Entertainment"},
	{"ENTERTAINMENT_TV_AND_MOVIES", "Subscriptions"},
	{"ENTERTAINMENT_VIDEO_GAMES", "Entertainment"},
	{"RECREATION_GYMS_AND_FITNESS_CENTERS", "Fitness"},

	// Personal
	{"PERSONAL_CARE_HAIR_AND_BEAUTY", "Personal Care"},
	{"PERSONAL_CARE_LAUNDRY_AND_DRY_CLEANING", "Personal Care"},

	// Loans and insurance
	{"LOAN_PAYMENTS_CAR_PAYMENT", "Car Payment"},
	{"LOAN_PAYMENTS_INSURANCE", "Insurance"},
	{"LOAN_PAYMENTS_STUDENT_LOAN", "Debt Payment"},
	{"LOAN_PAYMENTS_CREDIT_CARD_PAYMENT", "Debt Payment"},

	// Income
	{"INCOME_WAGES", CategoryIncome},
	{"INCOME_DIVIDENDS", CategoryIncome},
	{"INCOME_INTEREST_EARNED", CategoryIncome},
	{"INCOME_RETIREMENT_PENSION", CategoryIncome},
	{"INCOME_TAX_REFUND", CategoryIncome},
	{"INCOME_OTHER_INCOME", CategoryIncome},

	// Transfers
	{"TRANSFER_INTERNAL_ACCOUNT_TRANSFER", CategoryTransfers},
	{"TRANSFER_ACH", CategoryTransfers},
	{"TRANSFER_WIRE", CategoryTransfers},
	{"TRANSFER_DEBIT", CategoryETransfersIn},
	{"TRANSFER_CREDIT", CategoryETransfersIn},
	{"TRANSFER_THIRD_PARTY_VENMO", CategoryETransfersIn},
}

// Envelope groups related budget categories for display.
type Envelope struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

var envelopes = []Envelope{
	{Name: "Housing", Categories: []string{"Rent/Mortgage", "Utilities", "Phone & Internet", "Home", "Insurance"}},
	{Name: "Transportation", Categories: []string{"Transit", "Gas", "Parking", "Car Maintenance", "Car Payment"}},
	{Name: "Food & Dining", Categories: []string{"Groceries", "Dining Out", "Coffee & Snacks", "Alcohol"}},
	{Name: "Health & Fitness", Categories: []string{"Health", "Fitness", "Pets", "Personal Care"}},
	{Name: "Lifestyle", Categories: []string{"Shopping", "Clothing", "Electronics", "Entertainment", "Subscriptions"}},
	{Name: "Financial", Categories: []string{"Debt Payment", "Savings", "Investments"}},
}
