package state

// Page names the screen the tablet currently renders.
type Page string

const (
	PageWelcome               Page = "welcome"
	PageProductDetail         Page = "product-detail"
	PageProductEnrollment     Page = "product-enrollment"
	PageProductVisualization  Page = "product-visualization"
	PageCustomerHistory       Page = "customer-history"
	PageRecommendations       Page = "recommendations"
	PageProductRecommendation Page = "product-recommendation"
	PageCustomerInfo          Page = "customer-info"
)
