package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// Marketplace constants
	DEFAULT_CURRENCY = "ETH"
)
