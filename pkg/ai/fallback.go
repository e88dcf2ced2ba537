package ai

import (
	"fmt"
	"strings"
)

// supportedTemplateLanguages mirrors the judge's language set; every
// generated problem carries one template per entry.
var supportedTemplateLanguages = []string{"python", "javascript", "java", "c++", "c", "go", "typescript"}

// DefaultProblem is the deterministic problem used when the model output
// cannot be parsed or validated. It keeps the admin flow usable offline.
func DefaultProblem(difficulty string) GeneratedProblem {
	difficulty = normalizeDifficulty(difficulty)
	problem := GeneratedProblem{
		Title:       fmt.Sprintf("Array Sum (%s)", difficulty),
		Description: "Given an array of N integers, compute the sum of its elements.\n\nThe first line of input contains N. The second line contains N space-separated integers.",
		Example:     "Sample Input:\n3\n1 2 3\nSample Output:\n6",
		Constraints: defaultConstraints(difficulty),
		Difficulty:  difficulty,
		Tags:        []string{"arrays", "math"},
	}
	EnsureTemplates(&problem)
	return problem
}

// DefaultTestCases produces simple array-sum cases used when generation
// fails.
func DefaultTestCases(count int) []GeneratedTestCase {
	if count <= 0 {
		count = 3
	}
	cases := make([]GeneratedTestCase, 0, count)
	for i := 0; i < count; i++ {
		n := i + 2
		values := make([]string, n)
		sum := 0
		for j := 0; j < n; j++ {
			values[j] = fmt.Sprintf("%d", j+1)
			sum += j + 1
		}
		cases = append(cases, GeneratedTestCase{
			Input:          fmt.Sprintf("%d\n%s", n, strings.Join(values, " ")),
			ExpectedOutput: fmt.Sprintf("%d", sum),
		})
	}
	return cases
}

// EnsureTemplates guarantees the problem carries a starter template for every
// supported language, generating a minimal stub where the model omitted one.
func EnsureTemplates(problem *GeneratedProblem) {
	present := make(map[string]bool, len(problem.CodeTemplates))
	for _, tpl := range problem.CodeTemplates {
		present[normalizeLanguage(tpl.Language)] = true
	}
	for _, language := range supportedTemplateLanguages {
		if present[language] {
			continue
		}
		problem.CodeTemplates = append(problem.CodeTemplates, GeneratedTemplate{
			Language: language,
			Code:     defaultTemplate(language),
		})
	}
}

func normalizeLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "python", "py":
		return "python"
	case "javascript", "js", "node":
		return "javascript"
	case "java":
		return "java"
	case "c++", "cpp":
		return "c++"
	case "c":
		return "c"
	case "go", "golang":
		return "go"
	case "typescript", "ts":
		return "typescript"
	default:
		return strings.ToLower(strings.TrimSpace(language))
	}
}

func normalizeDifficulty(difficulty string) string {
	switch strings.ToUpper(strings.TrimSpace(difficulty)) {
	case "MEDIUM":
		return "MEDIUM"
	case "HARD":
		return "HARD"
	default:
		return "EASY"
	}
}

func defaultConstraints(difficulty string) string {
	switch difficulty {
	case "MEDIUM":
		return "1 <= N <= 10^5\n-10^9 <= arr[i] <= 10^9"
	case "HARD":
		return "1 <= N <= 10^6\n-10^18 <= arr[i] <= 10^18"
	default:
		return "1 <= N <= 1000\n-1000 <= arr[i] <= 1000"
	}
}

func defaultTemplate(language string) string {
	switch language {
	case "python":
		return "def solve():\n    # Read input and print the answer\n    pass\n\nif __name__ == \"__main__\":\n    solve()\n"
	case "javascript":
		return "function solve(input) {\n    // Read input and print the answer\n}\n\nsolve(require('fs').readFileSync(0, 'utf8'));\n"
	case "typescript":
		return "function solve(input: string): void {\n    // Read input and print the answer\n}\n\nsolve(require('fs').readFileSync(0, 'utf8'));\n"
	case "java":
		return "import java.util.Scanner;\n\npublic class Main {\n    public static void main(String[] args) {\n        Scanner in = new Scanner(System.in);\n        // Read input and print the answer\n    }\n}\n"
	case "c++":
		return "#include <bits/stdc++.h>\n\nint main() {\n    // Read input and print the answer\n    return 0;\n}\n"
	case "c":
		return "#include <stdio.h>\n\nint main(void) {\n    /* Read input and print the answer */\n    return 0;\n}\n"
	case "go":
		return "package main\n\nimport (\n\t\"bufio\"\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() {\n\treader := bufio.NewReader(os.Stdin)\n\t_ = reader\n\t_ = fmt.Sprint\n}\n"
	default:
		return "// Write your solution here\n"
	}
}
