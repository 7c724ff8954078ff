package repoargs

type RepositoryName string

const (
	OrderRepoName    RepositoryName = "payment_order"
	PaymentRepoName  RepositoryName = "payment"
	ReferralRepoName RepositoryName = "referral_profile"
	LockRepoName     RepositoryName = "lock"
)

// LockNamespace пространство ключей для транзакционных блокировок.
type LockNamespace string

const (
	LockTransactionID    LockNamespace = "transaction"
	LockGatewaySessionID LockNamespace = "gateway_session"
)
