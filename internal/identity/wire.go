package identity

const IdentityServiceName = "collabspace.v1.IdentityService"

const (
	IdentityServiceSignInProcedure   = "/" + IdentityServiceName + "/SignIn"
	IdentityServiceRegisterProcedure = "/" + IdentityServiceName + "/Register"
	IdentityServiceSignOutProcedure  = "/" + IdentityServiceName + "/SignOut"
	IdentityServiceVerifyProcedure   = "/" + IdentityServiceName + "/Verify"
	IdentityServiceUsersProcedure    = "/" + IdentityServiceName + "/Users"
)

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type CredentialsResponse struct {
	Credentials *Credentials `json:"credentials"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type SignOutResponse struct{}

type VerifyResponse struct {
	User *User `json:"user"`
}

type UsersRequest struct {
	UIDs []string `json:"uids"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}
