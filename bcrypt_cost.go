//go:build !race

package vidcore

func passwordHashCost() int {
	return 14
}
