//go:build tools

package tools

// Tool dependencies are not tracked with blank imports. mockery is used as
// an installed binary. Regenerate the accelerator mocks from the module root:
//
//	mockery --name Core --dir pkg/accel --output pkg/accel/mocks --with-expecter
