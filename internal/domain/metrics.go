package domain

// PaymentsMetrics is the snapshot returned by GET /v1/metrics/payments.
type PaymentsMetrics struct {
	TotalCharges   int64   `json:"totalCharges"`
	PixCharges     int64   `json:"pixCharges"`
	CardCharges    int64   `json:"cardCharges"`
	PaymentLinks   int64   `json:"paymentLinks"`
	ErrorRate      float64 `json:"errorRate"`
	QRCacheHitRate float64 `json:"qrCacheHitRate"`
	TokenRefreshes int64   `json:"tokenRefreshes"`
	Period         string  `json:"period"`
}
