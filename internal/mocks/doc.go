// Package mocks provides centralized test doubles for the pipeline's
// collaborator interfaces.
//
// Usage:
//
//	backend := mocks.NewMockBackendWithFragments("Hello", " world")
//	publisher := mocks.NewMockPublisher()
//
//	// wire them into the component under test, then inspect
//	// publisher.Published() and backend.Calls()
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Track calls under a mutex so mocks are safe in concurrent tests
package mocks
