package main

import (
	_ "purchaseledger/api/swagger" // swagger docs
)

func main() {
	Execute()
}
