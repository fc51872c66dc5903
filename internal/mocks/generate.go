// Package mocks provides mock implementations for testing the auth core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockDir := mocks.NewMockUserDirectory(ctrl)
//	mockDir.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(principal, true, nil)
package mocks

// Generate mock for UserDirectory interface from internal/ports.
// This creates MockUserDirectory with FindByEmail and FindByID. The other
// auth ports use the hand-written doubles in internal/mocks/auth.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_directory_mock.go github.com/theervu-kaanal/grievance-api/internal/ports UserDirectory
