package main

import (
	"fmt"
	util "go-framework/util"
	"log"
)

// This is main function. main is the entry point of the Go program.
// This written to convert Numbers to words
// There are no input parameters.
// It prints the words and returns nothing.
func main() {
	var input_num string
	fmt.Printf("Please enter the number :")
	fmt.Scan(&input_num)

	//get integer to Indian words.
	words, err := util.ConvertIntegerToEnIn(input_num)
	if err != nil {
		log.Fatal("Not a valid number")
	}
	fmt.Printf("In words(India): %s\n", words)

	//get integer to international words
	words1, err := util.ConvertIntegerToEnUS(input_num)
	if err != nil {
		log.Fatal("Not a valid number")
	}
	fmt.Printf("In words(International): %s\n", words1)

	/*words, err := util.ConvertNums2Words(input_num,"IND")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("In words: %s", words)*/
}

/* output

PS D:\Merce\GoLang\go-framework\src> go run .\app_code.go
Please enter the number :-12345.400
In words(India): minus twelve thousand three hundred forty-five Rupees and forty Paise
In words(International): minus twelve thousand three hundred forty-five and forty

Please enter the number :12334434534534545.7000
In words(India): one hundred twenty-three crore thirty-four lakh forty-three thousand four hundred fifty-three crore forty-five lakh thirty-four thousand five hundred forty-five Rupees and seventy Paise
In words(International): twelve quadrillion three hundred thirty-four trillion four hundred thirty-four billion five hundred thirty-four million five hundred thirty-four thousand five hundred forty-five and seventy

PS D:\Merce\GoLang\go-framework\src> go run .\app_code.go
Please enter the number :12345678901234567.43445
In words(India): one hundred twenty-three crore forty-five lakh sixty-seven thousand eight hundred ninety crore twelve lakh thirty-four thousand five hundred sixty-seven Rupees and forty-three Paise
In words(International): twelve quadrillion three hundred forty-five trillion six hundred seventy-eight billion nine hundred one million two hundred thirty-four thousand five hundred sixty-seven and forty-three
*/
