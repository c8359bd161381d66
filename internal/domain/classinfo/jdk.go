package classinfo

// jdkSupers lists the superclass of common platform classes, consulted when
// the class itself is not on the classpath. Catch widening and frame merging
// mostly meet these types.
var jdkSupers = map[string]string{
	"java/lang/Throwable":                        "java/lang/Object",
	"java/lang/Exception":                        "java/lang/Throwable",
	"java/lang/Error":                            "java/lang/Throwable",
	"java/lang/RuntimeException":                 "java/lang/Exception",
	"java/lang/ArithmeticException":              "java/lang/RuntimeException",
	"java/lang/ArrayStoreException":              "java/lang/RuntimeException",
	"java/lang/ClassCastException":               "java/lang/RuntimeException",
	"java/lang/IllegalArgumentException":         "java/lang/RuntimeException",
	"java/lang/IllegalStateException":            "java/lang/RuntimeException",
	"java/lang/IndexOutOfBoundsException":        "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException":   "java/lang/IndexOutOfBoundsException",
	"java/lang/StringIndexOutOfBoundsException":  "java/lang/IndexOutOfBoundsException",
	"java/lang/NegativeArraySizeException":       "java/lang/RuntimeException",
	"java/lang/NullPointerException":             "java/lang/RuntimeException",
	"java/lang/NumberFormatException":            "java/lang/IllegalArgumentException",
	"java/lang/UnsupportedOperationException":    "java/lang/RuntimeException",
	"java/lang/SecurityException":                "java/lang/RuntimeException",
	"java/lang/InterruptedException":             "java/lang/Exception",
	"java/lang/CloneNotSupportedException":       "java/lang/Exception",
	"java/lang/ReflectiveOperationException":     "java/lang/Exception",
	"java/lang/ClassNotFoundException":           "java/lang/ReflectiveOperationException",
	"java/lang/NoSuchFieldException":             "java/lang/ReflectiveOperationException",
	"java/lang/NoSuchMethodException":            "java/lang/ReflectiveOperationException",
	"java/lang/AssertionError":                   "java/lang/Error",
	"java/lang/LinkageError":                     "java/lang/Error",
	"java/lang/VirtualMachineError":              "java/lang/Error",
	"java/lang/OutOfMemoryError":                 "java/lang/VirtualMachineError",
	"java/lang/StackOverflowError":               "java/lang/VirtualMachineError",
	"java/util/ConcurrentModificationException":  "java/lang/RuntimeException",
	"java/util/NoSuchElementException":           "java/lang/RuntimeException",
	"java/util/EmptyStackException":              "java/lang/RuntimeException",
	"java/util/InputMismatchException":           "java/util/NoSuchElementException",
	"java/io/IOException":                        "java/lang/Exception",
	"java/io/FileNotFoundException":              "java/io/IOException",
	"java/io/EOFException":                       "java/io/IOException",
	"java/io/UncheckedIOException":               "java/lang/RuntimeException",
	"java/lang/String":                           "java/lang/Object",
	"java/lang/Number":                           "java/lang/Object",
	"java/lang/Integer":                          "java/lang/Number",
	"java/lang/Long":                             "java/lang/Number",
	"java/lang/Short":                            "java/lang/Number",
	"java/lang/Byte":                             "java/lang/Number",
	"java/lang/Float":                            "java/lang/Number",
	"java/lang/Double":                           "java/lang/Number",
	"java/lang/Boolean":                          "java/lang/Object",
	"java/lang/Character":                        "java/lang/Object",
	"java/lang/StringBuilder":                    "java/lang/AbstractStringBuilder",
	"java/lang/StringBuffer":                     "java/lang/AbstractStringBuilder",
	"java/lang/AbstractStringBuilder":            "java/lang/Object",
	"java/util/AbstractCollection":               "java/lang/Object",
	"java/util/AbstractList":                     "java/util/AbstractCollection",
	"java/util/ArrayList":                        "java/util/AbstractList",
	"java/util/AbstractSequentialList":           "java/util/AbstractList",
	"java/util/LinkedList":                       "java/util/AbstractSequentialList",
	"java/util/AbstractMap":                      "java/lang/Object",
	"java/util/HashMap":                          "java/util/AbstractMap",
	"java/util/LinkedHashMap":                    "java/util/HashMap",
	"java/util/TreeMap":                          "java/util/AbstractMap",
	"java/util/AbstractSet":                      "java/util/AbstractCollection",
	"java/util/HashSet":                          "java/util/AbstractSet",
	"java/util/LinkedHashSet":                    "java/util/HashSet",
	"java/util/TreeSet":                          "java/util/AbstractSet",
}

// jdkInterfaces are platform interfaces frame merging may meet.
var jdkInterfaces = map[string]bool{
	"java/lang/CharSequence": true,
	"java/lang/Comparable":   true,
	"java/lang/Iterable":     true,
	"java/lang/Runnable":     true,
	"java/io/Serializable":   true,
	"java/util/Collection":   true,
	"java/util/List":         true,
	"java/util/Map":          true,
	"java/util/Set":          true,
	"java/util/Iterator":     true,
}
