// Command shard computes the rollout shard for a device ID: the last 8 hex
// characters of MD5(deviceId), parsed as an unsigned integer, mod 1000.
//
// Usage:
//
//	shard MD5 <deviceId>     print the shard for one device ID
//	shard SHARD_STDIN        read one device ID per line, print one shard per line
//
// The argv protocol is fixed by the hosts that invoke this binary, so it is
// parsed directly rather than through a flag framework. Exit code 1 on
// argument error.
package main

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

func shardOf(deviceID string) uint64 {
	sum := md5.Sum([]byte(deviceID))
	digest := hex.EncodeToString(sum[:])
	n, _ := strconv.ParseUint(digest[24:32], 16, 64)
	return n % 1000
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: shard MD5 <deviceId> | shard SHARD_STDIN")
		os.Exit(1)
	}
	switch os.Args[1] {
	case "MD5":
		if len(os.Args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: shard MD5 <deviceId>")
			os.Exit(1)
		}
		fmt.Println(shardOf(os.Args[2]))
	case "SHARD_STDIN":
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			fmt.Println(shardOf(sc.Text()))
		}
		if err := sc.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "reading stdin:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unrecognized mode %q\n", os.Args[1])
		os.Exit(1)
	}
}
