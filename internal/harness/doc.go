// Package harness runs diagnostics checks from Go tests.
//
// # Checking a test directory
//
// Check runs a full check against a real test directory and reports through
// testing.TB: a mismatch fails the test with the unified diff, any other
// problem (tool failure, malformed output, missing expectations) is fatal.
//
//	func TestJavaExtractor(t *testing.T) {
//	    harness.Check(t, harness.Options{TestDir: "testdata/java-extractor"})
//	}
//
// Set CODEQL_INTEGRATION_TEST_LEARN=true, or call SetLearn, to rewrite
// diagnostics.expected instead of comparing. A package that wants a -learn
// flag registers it in its own TestMain:
//
//	var learn = flag.Bool("learn", false, "rewrite diagnostics.expected")
//
//	func TestMain(m *testing.M) {
//	    flag.Parse()
//	    harness.SetLearn(*learn)
//	    os.Exit(m.Run())
//	}
//
// # Scenario Format
//
// Scenarios replay a recorded tool export through the checker without running
// the tool. They are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	learn: false
//	tool_output: |
//	  [{"source": {"id": "java/extractor"}, "timestamp": "...",
//	    "markdownMessage": "see ${TEST_DIR}/Main.java"}]
//	expected: |
//	  {"source": {"id": "java/extractor"}, ...}
//	expect:
//	  outcome: match
//	assertions:
//	  - type: entry_count
//	    count: 1
//	  - type: contains_source
//	    source: java/extractor
//
// ${TEST_DIR} in tool_output is replaced with the absolute scenario test
// directory, standing in for paths the tool would print. Omitting expected
// leaves no diagnostics.expected in the test directory.
//
// # Assertion Types
//
//   - entry_count: the actual batch has exactly Count entries
//   - contains_source: some actual entry has source.id equal to Source
//   - absent_source: no actual entry has a source.id starting with Source
//   - contains_text: the canonical actual text contains Text
//
// RunWithGolden additionally compares the canonical actual text against
// testdata/golden/<name>.golden.
package harness
