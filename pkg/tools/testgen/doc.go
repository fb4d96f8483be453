// Package testgen provides the two capabilities the test-writing agent uses
// to hand its work back: record_plan and record_script_and_execute.
//
// Both are bound to one instance through an InstanceContext and write into
// that instance's capture record. record_script_and_execute also runs the
// script and returns the execution report, which is how the agent learns
// whether to retry.
package testgen
